// ABOUTME: Database schema definitions for the lead cache
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS lead_cache (
	namespace TEXT NOT NULL CHECK(namespace IN ('active', 'archived')),
	position INTEGER NOT NULL,
	id TEXT NOT NULL,
	name TEXT,
	phone TEXT,
	email TEXT,
	source TEXT,
	stage TEXT NOT NULL DEFAULT '',
	archived INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	reach_out TEXT NOT NULL DEFAULT '{}',
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (namespace, position)
);

CREATE INDEX IF NOT EXISTS idx_lead_cache_id ON lead_cache(id);
CREATE INDEX IF NOT EXISTS idx_lead_cache_stage ON lead_cache(stage);

CREATE TABLE IF NOT EXISTS permanent_archive_ids (
	id TEXT PRIMARY KEY,
	recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sync_state (
	service TEXT PRIMARY KEY,
	last_sync_time DATETIME,
	last_pass_id TEXT,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	active_count INTEGER NOT NULL DEFAULT 0,
	archive_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
