// ABOUTME: Charm KV implementation of the lead cache
// ABOUTME: Keeps the whole partition under one key so both namespaces change in one write
package charm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/harperreed/leadsync/models"
)

const (
	partitionKey    = "leads/partition"
	permanentIDsKey = "leads/permanent_archive_ids"
	syncStateKey    = "leads/sync_state"
)

// LeadStore persists the reconciled partition in Charm KV.
type LeadStore struct {
	client *Client
	mu     sync.Mutex
	now    func() time.Time
}

func NewLeadStore(client *Client) *LeadStore {
	return &LeadStore{client: client, now: func() time.Time { return time.Now().UTC() }}
}

func (s *LeadStore) Close() error {
	return s.client.Close()
}

func (s *LeadStore) LoadPartition(_ context.Context) (models.Partition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPartition()
}

func (s *LeadStore) ReplacePartition(_ context.Context, p models.Partition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writePartition(p)
}

func (s *LeadStore) PermanentArchiveIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadPermanentIDs()
}

func (s *LeadStore) SaveLead(_ context.Context, lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadPartition()
	if err != nil {
		return err
	}

	lead.UpdatedAt = s.now()
	if !p.Update(lead) {
		return models.ErrLeadNotFound
	}
	return s.writePartition(p)
}

func (s *LeadStore) GetLead(_ context.Context, id string) (*models.Lead, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadPartition()
	if err != nil {
		return nil, "", err
	}

	lead, ns, ok := p.Find(id)
	if !ok {
		return nil, "", models.ErrLeadNotFound
	}
	return &lead, ns, nil
}

func (s *LeadStore) ArchiveLead(_ context.Context, id string) error {
	return s.mutate(func(p *models.Partition, now time.Time) error {
		return p.Archive(id, now)
	})
}

func (s *LeadStore) UnarchiveLead(_ context.Context, id string) error {
	return s.mutate(func(p *models.Partition, now time.Time) error {
		return p.Unarchive(id, now)
	})
}

// PermanentlyDeleteLead records the id before removing the lead so a failed
// second write still leaves the lead archived on the next pass.
func (s *LeadStore) PermanentlyDeleteLead(_ context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.ErrLeadNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.loadPermanentIDs()
	if err != nil {
		return err
	}
	if !contains(ids, id) {
		if err := s.put(permanentIDsKey, append(ids, id)); err != nil {
			return fmt.Errorf("failed to record permanent archive id %s: %w", id, err)
		}
	}

	p, err := s.loadPartition()
	if err != nil {
		return err
	}
	if p.Remove(id) == 0 {
		return nil
	}
	return s.writePartition(p)
}

func (s *LeadStore) ImportLeads(_ context.Context, leads []models.Lead) error {
	return s.mutate(func(p *models.Partition, _ time.Time) error {
		p.Active = append(p.Active, leads...)
		return nil
	})
}

func (s *LeadStore) GetSyncState(_ context.Context) (*models.SyncState, error) {
	var state models.SyncState
	found, err := s.get(syncStateKey, &state)
	if err != nil || !found {
		return nil, err
	}
	return &state, nil
}

func (s *LeadStore) RecordSyncState(_ context.Context, state models.SyncState) error {
	if state.Service == "" {
		state.Service = models.SyncServiceLeads
	}
	if state.Status == "" {
		state.Status = models.SyncStatusIdle
	}
	state.UpdatedAt = s.now()
	return s.put(syncStateKey, state)
}

func (s *LeadStore) mutate(fn func(p *models.Partition, now time.Time) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.loadPartition()
	if err != nil {
		return err
	}
	if err := fn(&p, s.now()); err != nil {
		return err
	}
	return s.writePartition(p)
}

func (s *LeadStore) loadPartition() (models.Partition, error) {
	p := models.Partition{Active: []models.Lead{}, Archived: []models.Lead{}}
	if _, err := s.get(partitionKey, &p); err != nil {
		return models.Partition{}, err
	}
	if p.Active == nil {
		p.Active = []models.Lead{}
	}
	if p.Archived == nil {
		p.Archived = []models.Lead{}
	}
	return p, nil
}

func (s *LeadStore) writePartition(p models.Partition) error {
	now := s.now()
	for _, ns := range [][]models.Lead{p.Active, p.Archived} {
		for i := range ns {
			if ns[i].UpdatedAt.IsZero() {
				ns[i].UpdatedAt = now
			}
		}
	}
	if err := s.put(partitionKey, p); err != nil {
		return fmt.Errorf("failed to write partition: %w", err)
	}
	return nil
}

func (s *LeadStore) loadPermanentIDs() ([]string, error) {
	ids := []string{}
	if _, err := s.get(permanentIDsKey, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *LeadStore) get(key string, dest interface{}) (bool, error) {
	data, err := s.client.Get([]byte(key))
	if errors.Is(err, ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *LeadStore) put(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.client.Set([]byte(key), data)
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
