// Package store provides SQLite-backed persistence for diet plans and
// progress entries.
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS plans (
	plan_id          TEXT PRIMARY KEY,
	owner            TEXT NOT NULL,
	revision         INTEGER NOT NULL DEFAULT 1,
	profile_json     TEXT NOT NULL DEFAULT '{}',
	targets_json     TEXT NOT NULL DEFAULT '{}',
	imc              REAL NOT NULL DEFAULT 0.0,
	meals_json       TEXT NOT NULL DEFAULT '[]',
	relaxed_json     TEXT NOT NULL DEFAULT '[]',
	created_at       INTEGER NOT NULL,
	last_modified_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_plans_owner_created ON plans(owner, created_at);

CREATE TABLE IF NOT EXISTS plan_events (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id      TEXT NOT NULL REFERENCES plans(plan_id),
	seq_no       INTEGER NOT NULL,
	event_type   TEXT NOT NULL,
	payload_json TEXT NOT NULL DEFAULT '{}',
	created_at   INTEGER NOT NULL,
	UNIQUE(plan_id, seq_no)
);
CREATE INDEX IF NOT EXISTS idx_events_plan_seq ON plan_events(plan_id, seq_no);

CREATE TABLE IF NOT EXISTS plan_snapshots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	plan_id       TEXT NOT NULL REFERENCES plans(plan_id),
	revision      INTEGER NOT NULL,
	snapshot_json TEXT NOT NULL DEFAULT '{}',
	checksum      TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL,
	UNIQUE(plan_id, revision)
);

CREATE TABLE IF NOT EXISTS progress_entries (
	entry_id   TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	weight_kg  REAL NOT NULL,
	height_cm  REAL NOT NULL,
	imc        REAL NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_progress_owner ON progress_entries(owner, created_at);
`

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the V1 schema migration.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}
