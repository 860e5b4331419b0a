// ABOUTME: Database operations for the sync_state table
// ABOUTME: Tracks the outcome of the last reconciliation pass per service
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/harperreed/leadsync/models"
)

// GetSyncState retrieves the sync state for a service. It returns nil when
// the service has never synced.
func GetSyncState(ctx context.Context, db *sql.DB, service string) (*models.SyncState, error) {
	var state models.SyncState
	var lastSyncTime sql.NullTime
	var lastPassID sql.NullString
	var status sql.NullString
	var errorMessage sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT service, last_sync_time, last_pass_id, status, error_message,
			active_count, archive_count, updated_at
		FROM sync_state
		WHERE service = ?
	`, service).Scan(
		&state.Service,
		&lastSyncTime,
		&lastPassID,
		&status,
		&errorMessage,
		&state.ActiveCount,
		&state.ArchiveCount,
		&state.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if lastSyncTime.Valid {
		state.LastSyncTime = &lastSyncTime.Time
	}
	state.LastPassID = lastPassID.String
	state.Status = status.String
	state.ErrorMessage = errorMessage.String

	return &state, nil
}

// RecordSyncState upserts the sync state for state.Service.
func RecordSyncState(ctx context.Context, db *sql.DB, state models.SyncState) error {
	var lastSyncTime sql.NullTime
	if state.LastSyncTime != nil {
		lastSyncTime = sql.NullTime{Time: state.LastSyncTime.UTC(), Valid: true}
	}

	status := state.Status
	if status == "" {
		status = models.SyncStatusIdle
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO sync_state (service, last_sync_time, last_pass_id, status, error_message,
			active_count, archive_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = excluded.last_sync_time,
			last_pass_id = excluded.last_pass_id,
			status = excluded.status,
			error_message = excluded.error_message,
			active_count = excluded.active_count,
			archive_count = excluded.archive_count,
			updated_at = CURRENT_TIMESTAMP
	`, state.Service, lastSyncTime, nullString(state.LastPassID), status, nullString(state.ErrorMessage),
		state.ActiveCount, state.ArchiveCount)

	if err != nil {
		return fmt.Errorf("failed to record sync state: %w", err)
	}

	return nil
}
