// Package history keeps a SQLite record of finished nesting jobs.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/piwi3910/slabnest/internal/model"
	"github.com/piwi3910/slabnest/internal/nesting"
)

// ErrNotFound is returned when a job ID is not in the store.
var ErrNotFound = errors.New("job not found")

var _ nesting.Recorder = (*Store)(nil)

// Config holds database configuration options.
type Config struct {
	Path            string        // Database file path
	MaxOpenConns    int           // Maximum number of open connections
	ConnMaxLifetime time.Duration // Maximum connection lifetime
	BusyTimeout     time.Duration // SQLite busy timeout
}

// DefaultConfig returns the settings used by Open.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		MaxOpenConns:    4,
		ConnMaxLifetime: time.Hour,
		BusyTimeout:     5 * time.Second,
	}
}

// Store is the job history database.
type Store struct {
	conn *sql.DB
	path string
}

// JobSummary is one row of the jobs table.
type JobSummary struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	Attempts    int
	Sheets      int
	Placed      int
	Unplaced    int
	Utilization float64 // Percent over all sheets
	Criterion   string
	Params      model.Parameters
	Error       string
}

// Duration returns how long the job ran.
func (j JobSummary) Duration() time.Duration {
	return j.FinishedAt.Sub(j.StartedAt)
}

// Open opens or creates the store at path and migrates its schema.
func Open(path string) (*Store, error) {
	return OpenWithConfig(DefaultConfig(path))
}

// OpenWithConfig opens the store with WAL journaling and foreign keys enabled.
func OpenWithConfig(cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=%d",
		cfg.Path,
		int(cfg.BusyTimeout.Milliseconds()),
	)

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{conn: conn, path: cfg.Path}
	if err := s.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// withTx runs fn in a transaction, rolling back if it returns an error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Record stores a finished job and its sheets, replacing an earlier record
// with the same ID.
func (s *Store) Record(ctx context.Context, rec nesting.JobRecord) error {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}
	var errText sql.NullString
	if rec.Err != nil {
		errText = sql.NullString{String: rec.Err.Error(), Valid: true}
	}
	res := rec.Result

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM job_sheets WHERE job_id = ?`, rec.JobID); err != nil {
			return fmt.Errorf("failed to clear sheets: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO jobs
				(id, started_at, finished_at, attempts, sheets, placed, unplaced, utilization, criterion, params, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.JobID,
			rec.StartedAt.UnixNano(),
			rec.FinishedAt.UnixNano(),
			rec.Attempts,
			len(res.Sheets),
			res.PlacedCount(),
			res.UnplacedCount(),
			res.TotalEfficiency(),
			rec.Params.Criterion.String(),
			string(params),
			errText,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}

		summaries := res.Summaries
		if len(summaries) == 0 {
			summaries = nesting.Summarize(res.Sheets)
		}
		for _, sum := range summaries {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO job_sheets
					(job_id, idx, attempt, width, height, objects, object_area, utilization)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				rec.JobID, sum.Index, sum.Attempt, sum.Width, sum.Height,
				sum.ObjectCount, sum.ObjectArea, sum.Utilization,
			)
			if err != nil {
				return fmt.Errorf("failed to insert sheet %d: %w", sum.Index, err)
			}
		}
		return nil
	})
}

const jobColumns = `id, started_at, finished_at, attempts, sheets, placed, unplaced, utilization, criterion, params, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (JobSummary, error) {
	var (
		j                 JobSummary
		started, finished int64
		params            string
		errText           sql.NullString
	)
	if err := row.Scan(&j.ID, &started, &finished, &j.Attempts, &j.Sheets, &j.Placed,
		&j.Unplaced, &j.Utilization, &j.Criterion, &params, &errText); err != nil {
		return j, err
	}
	j.StartedAt = time.Unix(0, started)
	j.FinishedAt = time.Unix(0, finished)
	j.Error = errText.String
	if err := json.Unmarshal([]byte(params), &j.Params); err != nil {
		return j, fmt.Errorf("failed to decode parameters of job %s: %w", j.ID, err)
	}
	return j, nil
}

// List returns up to limit jobs, most recently started first. A limit of
// zero or less returns every job.
func (s *Store) List(ctx context.Context, limit int) ([]JobSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobSummary
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Get returns one job by ID.
func (s *Store) Get(ctx context.Context, jobID string) (JobSummary, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, jobID)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return JobSummary{}, fmt.Errorf("%w: %s", ErrNotFound, jobID)
	}
	if err != nil {
		return JobSummary{}, fmt.Errorf("failed to get job %s: %w", jobID, err)
	}
	return j, nil
}

// Sheets returns the per-sheet summaries of a job in sheet order.
func (s *Store) Sheets(ctx context.Context, jobID string) ([]model.SheetSummary, error) {
	if _, err := s.Get(ctx, jobID); err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT idx, attempt, width, height, objects, object_area, utilization
		FROM job_sheets WHERE job_id = ? ORDER BY idx`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sheets: %w", err)
	}
	defer rows.Close()

	var out []model.SheetSummary
	for rows.Next() {
		var sum model.SheetSummary
		if err := rows.Scan(&sum.Index, &sum.Attempt, &sum.Width, &sum.Height,
			&sum.ObjectCount, &sum.ObjectArea, &sum.Utilization); err != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", err)
		}
		sum.SheetArea = sum.Width * sum.Height
		out = append(out, sum)
	}
	return out, rows.Err()
}
