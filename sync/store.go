// ABOUTME: Storage contracts the engine needs from a lead cache backend
// ABOUTME: Implemented by the SQLite cache in db and the Charm KV cache in charm
package sync

import (
	"context"

	"github.com/harperreed/leadsync/models"
)

// LeadStore is the cache the orchestrator reconciles into. ReplacePartition
// must replace both namespaces together or not at all.
type LeadStore interface {
	LoadPartition(ctx context.Context) (models.Partition, error)
	PermanentArchiveIDs(ctx context.Context) ([]string, error)
	ReplacePartition(ctx context.Context, p models.Partition) error
	// SaveLead overwrites the cached lead with the same id in whichever
	// namespace holds it. Returns models.ErrLeadNotFound if none does.
	SaveLead(ctx context.Context, lead models.Lead) error
	GetSyncState(ctx context.Context) (*models.SyncState, error)
	RecordSyncState(ctx context.Context, state models.SyncState) error
}

// LeadRepository adds the user actions surrounding the engine.
type LeadRepository interface {
	LeadStore
	GetLead(ctx context.Context, id string) (*models.Lead, string, error)
	ArchiveLead(ctx context.Context, id string) error
	UnarchiveLead(ctx context.Context, id string) error
	// PermanentlyDeleteLead drops the lead from both namespaces and records
	// its id so it stays archived on every future pass.
	PermanentlyDeleteLead(ctx context.Context, id string) error
	ImportLeads(ctx context.Context, leads []models.Lead) error
	Close() error
}
