// ABOUTME: SQLite-backed lead cache repository
// ABOUTME: Persists the active/archived partition, permanent archive ids and sync state
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/leadsync/models"
)

// LeadCache stores the reconciled partition in SQLite.
type LeadCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewLeadCache creates a lead cache over an opened database.
func NewLeadCache(db *sql.DB) *LeadCache {
	return &LeadCache{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// OpenLeadCache opens the database at path and wraps it in a LeadCache.
func OpenLeadCache(path string) (*LeadCache, error) {
	db, err := OpenDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewLeadCache(db), nil
}

// DB exposes the underlying connection.
func (c *LeadCache) DB() *sql.DB {
	return c.db
}

func (c *LeadCache) Close() error {
	return c.db.Close()
}

func (c *LeadCache) LoadPartition(ctx context.Context) (models.Partition, error) {
	return loadPartition(ctx, c.db)
}

func (c *LeadCache) PermanentArchiveIDs(ctx context.Context) ([]string, error) {
	return loadPermanentArchiveIDs(ctx, c.db)
}

// ReplacePartition replaces both namespaces in a single transaction.
func (c *LeadCache) ReplacePartition(ctx context.Context, p models.Partition) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		return writePartition(ctx, tx, p, c.now())
	})
}

func (c *LeadCache) SaveLead(ctx context.Context, lead models.Lead) error {
	return updateLead(ctx, c.db, lead, c.now())
}

// GetLead returns the first cached lead with id and its namespace.
func (c *LeadCache) GetLead(ctx context.Context, id string) (*models.Lead, string, error) {
	p, err := c.LoadPartition(ctx)
	if err != nil {
		return nil, "", err
	}

	lead, ns, ok := p.Find(id)
	if !ok {
		return nil, "", models.ErrLeadNotFound
	}
	return &lead, ns, nil
}

func (c *LeadCache) ArchiveLead(ctx context.Context, id string) error {
	return c.mutate(ctx, func(p *models.Partition, now time.Time) error {
		return p.Archive(id, now)
	})
}

func (c *LeadCache) UnarchiveLead(ctx context.Context, id string) error {
	return c.mutate(ctx, func(p *models.Partition, now time.Time) error {
		return p.Unarchive(id, now)
	})
}

// PermanentlyDeleteLead removes the lead from the cache and records its id
// as permanently archived. The id is recorded even if nothing was cached.
func (c *LeadCache) PermanentlyDeleteLead(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.ErrLeadNotFound
	}

	return c.withTx(ctx, func(tx *sql.Tx) error {
		now := c.now()
		p, err := loadPartition(ctx, tx)
		if err != nil {
			return err
		}
		p.Remove(id)

		if err := writePartition(ctx, tx, p, now); err != nil {
			return err
		}
		return addPermanentArchiveID(ctx, tx, id, now)
	})
}

// ImportLeads appends leads to the active namespace.
func (c *LeadCache) ImportLeads(ctx context.Context, leads []models.Lead) error {
	return c.mutate(ctx, func(p *models.Partition, _ time.Time) error {
		p.Active = append(p.Active, leads...)
		return nil
	})
}

// mutate loads the partition, applies fn and writes both namespaces back in
// one transaction.
func (c *LeadCache) mutate(ctx context.Context, fn func(p *models.Partition, now time.Time) error) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		now := c.now()
		p, err := loadPartition(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(&p, now); err != nil {
			return err
		}
		return writePartition(ctx, tx, p, now)
	})
}

func (c *LeadCache) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *LeadCache) GetSyncState(ctx context.Context) (*models.SyncState, error) {
	return GetSyncState(ctx, c.db, models.SyncServiceLeads)
}

func (c *LeadCache) RecordSyncState(ctx context.Context, state models.SyncState) error {
	if state.Service == "" {
		state.Service = models.SyncServiceLeads
	}
	return RecordSyncState(ctx, c.db, state)
}
