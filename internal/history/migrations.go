package history

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one schema step. Versions are applied in ascending order.
type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		up: `
CREATE TABLE IF NOT EXISTS jobs (
	id          TEXT PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	attempts    INTEGER NOT NULL,
	sheets      INTEGER NOT NULL,
	placed      INTEGER NOT NULL,
	unplaced    INTEGER NOT NULL,
	utilization REAL NOT NULL,
	params      TEXT NOT NULL,
	error       TEXT
);

CREATE TABLE IF NOT EXISTS job_sheets (
	job_id      TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
	idx         INTEGER NOT NULL,
	attempt     INTEGER NOT NULL,
	width       REAL NOT NULL,
	height      REAL NOT NULL,
	objects     INTEGER NOT NULL,
	object_area REAL NOT NULL,
	utilization REAL NOT NULL,
	PRIMARY KEY (job_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_jobs_started ON jobs(started_at);
`,
	},
	{
		version: 2,
		name:    "job_criterion",
		up:      `ALTER TABLE jobs ADD COLUMN criterion TEXT NOT NULL DEFAULT '';`,
	},
}

// migrate applies every migration newer than the recorded schema version.
func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		err := s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.up); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO migrations (version, name) VALUES (?, ?)`, m.version, m.name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}
