package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 holds evaluation batches and their per-run outcomes. Trajectory
// blobs are zstd-compressed JSON and may be null when trajectory recording
// was off.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS batches (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    policy TEXT NOT NULL,
    world TEXT NOT NULL,
    base_seed INTEGER NOT NULL,
    max_steps INTEGER NOT NULL,
    n_requested INTEGER NOT NULL,
    n_completed INTEGER NOT NULL,
    errored INTEGER NOT NULL DEFAULT 0,
    soft_failures INTEGER NOT NULL DEFAULT 0,
    elapsed_ms INTEGER NOT NULL DEFAULT 0,
    report TEXT  -- JSON metrics report
);

CREATE TABLE IF NOT EXISTS outcomes (
    batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
    seed INTEGER NOT NULL,
    reason TEXT NOT NULL,       -- 'success', 'failure', 'timeout', 'error'
    steps INTEGER NOT NULL,
    score REAL,
    score_valid INTEGER NOT NULL DEFAULT 0,
    event_count INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    final_state TEXT,           -- JSON
    events TEXT,                -- JSON array of {timestep, name}
    trajectory BLOB,            -- zstd-compressed JSON, null when not recorded
    PRIMARY KEY (batch_id, seed)
);
CREATE INDEX IF NOT EXISTS idx_outcomes_reason ON outcomes(batch_id, reason);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InitSchema creates the tables if they do not exist and records the
// schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if _, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version) VALUES (?)`, SchemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}
