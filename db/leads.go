// ABOUTME: Row-level operations on the lead_cache and permanent_archive_ids tables
// ABOUTME: Namespaces are always rewritten together inside one transaction
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/leadsync/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const leadColumns = `id, name, phone, email, source, stage, archived, created_at, reach_out, updated_at`

// loadPartition reads both namespaces in stored order.
func loadPartition(ctx context.Context, q queryer) (models.Partition, error) {
	active, err := loadNamespace(ctx, q, models.NamespaceActive)
	if err != nil {
		return models.Partition{}, err
	}

	archived, err := loadNamespace(ctx, q, models.NamespaceArchived)
	if err != nil {
		return models.Partition{}, err
	}

	return models.Partition{Active: active, Archived: archived}, nil
}

func loadNamespace(ctx context.Context, q queryer, namespace string) ([]models.Lead, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+leadColumns+`
		FROM lead_cache
		WHERE namespace = ?
		ORDER BY position
	`, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s leads: %w", namespace, err)
	}
	defer func() { _ = rows.Close() }()

	leads := []models.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s leads: %w", namespace, err)
	}

	return leads, nil
}

func scanLead(rows *sql.Rows) (models.Lead, error) {
	var lead models.Lead
	var name, phone, email, source sql.NullString
	var createdAt sql.NullTime
	var reachOut string

	err := rows.Scan(
		&lead.ID,
		&name,
		&phone,
		&email,
		&source,
		&lead.Stage,
		&lead.Archived,
		&createdAt,
		&reachOut,
		&lead.UpdatedAt,
	)
	if err != nil {
		return models.Lead{}, fmt.Errorf("failed to scan lead: %w", err)
	}

	lead.Name = name.String
	lead.Phone = phone.String
	lead.Email = email.String
	lead.Source = source.String
	if createdAt.Valid {
		ts := createdAt.Time
		lead.CreatedAt = &ts
	}

	if reachOut != "" {
		if err := json.Unmarshal([]byte(reachOut), &lead.ReachOut); err != nil {
			return models.Lead{}, fmt.Errorf("failed to decode reach-out for lead %s: %w", lead.ID, err)
		}
	}

	return lead, nil
}

// writePartition replaces the contents of both namespaces. Callers run it
// inside a transaction.
func writePartition(ctx context.Context, tx *sql.Tx, p models.Partition, now time.Time) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM lead_cache`); err != nil {
		return fmt.Errorf("failed to clear lead cache: %w", err)
	}

	if err := insertNamespace(ctx, tx, models.NamespaceActive, p.Active, now); err != nil {
		return err
	}
	return insertNamespace(ctx, tx, models.NamespaceArchived, p.Archived, now)
}

func insertNamespace(ctx context.Context, tx *sql.Tx, namespace string, leads []models.Lead, now time.Time) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lead_cache (namespace, position, `+leadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare lead insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, lead := range leads {
		args, err := leadArgs(lead, now)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, append([]interface{}{namespace, i}, args...)...); err != nil {
			return fmt.Errorf("failed to insert %s lead %s: %w", namespace, lead.ID, err)
		}
	}

	return nil
}

// leadArgs returns values in leadColumns order.
func leadArgs(lead models.Lead, now time.Time) ([]interface{}, error) {
	reachOut, err := json.Marshal(lead.ReachOut)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reach-out for lead %s: %w", lead.ID, err)
	}

	var createdAt sql.NullTime
	if lead.CreatedAt != nil {
		createdAt = sql.NullTime{Time: lead.CreatedAt.UTC(), Valid: true}
	}

	updatedAt := lead.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	return []interface{}{
		lead.ID,
		nullString(lead.Name),
		nullString(lead.Phone),
		nullString(lead.Email),
		nullString(lead.Source),
		lead.Stage,
		lead.Archived,
		createdAt,
		string(reachOut),
		updatedAt.UTC(),
	}, nil
}

// updateLead rewrites every cached row with lead's id.
func updateLead(ctx context.Context, q queryer, lead models.Lead, now time.Time) error {
	lead.UpdatedAt = now
	args, err := leadArgs(lead, now)
	if err != nil {
		return err
	}

	result, err := q.ExecContext(ctx, `
		UPDATE lead_cache
		SET name = ?, phone = ?, email = ?, source = ?, stage = ?, archived = ?,
			created_at = ?, reach_out = ?, updated_at = ?
		WHERE id = ?
	`, append(args[1:], lead.ID)...)
	if err != nil {
		return fmt.Errorf("failed to update lead %s: %w", lead.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of lead %s: %w", lead.ID, err)
	}
	if n == 0 {
		return models.ErrLeadNotFound
	}

	return nil
}

func loadPermanentArchiveIDs(ctx context.Context, q queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM permanent_archive_ids ORDER BY recorded_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query permanent archive ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan permanent archive id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating permanent archive ids: %w", err)
	}

	return ids, nil
}

func addPermanentArchiveID(ctx context.Context, q queryer, id string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO permanent_archive_ids (id, recorded_at)
		VALUES (?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, now.UTC())
	if err != nil {
		return fmt.Errorf("failed to record permanent archive id %s: %w", id, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
