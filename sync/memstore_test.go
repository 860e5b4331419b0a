package sync

import (
	"context"
	"errors"
	stdsync "sync"

	"github.com/harperreed/leadsync/models"
)

// memStore is an in-memory LeadStore for orchestrator tests.
type memStore struct {
	mu           stdsync.Mutex
	partition    models.Partition
	permanentIDs []string
	state        *models.SyncState

	replaceCalls int
	loadErr      error
	replaceErr   error
	saveErr      error
}

func newMemStore(active, archived []models.Lead) *memStore {
	return &memStore{partition: models.Partition{Active: active, Archived: archived}}
}

func (s *memStore) LoadPartition(_ context.Context) (models.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return models.Partition{}, s.loadErr
	}
	return models.Partition{
		Active:   append([]models.Lead(nil), s.partition.Active...),
		Archived: append([]models.Lead(nil), s.partition.Archived...),
	}, nil
}

func (s *memStore) PermanentArchiveIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.permanentIDs...), nil
}

func (s *memStore) ReplacePartition(_ context.Context, p models.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.partition = p
	return nil
}

func (s *memStore) SaveLead(_ context.Context, lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, ns := range [][]models.Lead{s.partition.Active, s.partition.Archived} {
		for i := range ns {
			if ns[i].ID == lead.ID {
				ns[i] = lead
				return nil
			}
		}
	}
	return models.ErrLeadNotFound
}

func (s *memStore) GetSyncState(_ context.Context) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return nil, errors.New("no sync state")
	}
	state := *s.state
	return &state, nil
}

func (s *memStore) RecordSyncState(_ context.Context, state models.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &state
	return nil
}

func (s *memStore) snapshot() models.Partition {
	p, _ := s.LoadPartition(context.Background())
	return p
}
