// Package history records compile runs in a SQLite store, one row per unit
// and format, so repeated invocations over a file tree can be audited and
// compared by artifact fingerprint.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded compile of a unit's format.
type Run struct {
	ID          string
	Unit        string
	Format      string
	Outcome     string // "ok", "error", "skipped", "deleted"
	Fingerprint string // blake3 of the primary artifact, empty when absent
	Started     time.Time
	Duration    time.Duration
}

// Store is a SQLite-backed compile-run log.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (or creates) the store. Use ":memory:" for tests.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		unit TEXT NOT NULL,
		format TEXT NOT NULL,
		outcome TEXT NOT NULL,
		fingerprint TEXT,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_unit ON runs(unit);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one compile run.
func (s *Store) Record(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, unit, format, outcome, fingerprint, started, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, run.Unit, run.Format, run.Outcome, run.Fingerprint,
		run.Started.Unix(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// ByUnit returns the most recent runs for a unit, newest first.
func (s *Store) ByUnit(ctx context.Context, unit string, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, unit, format, outcome, fingerprint, started, duration_ms FROM runs WHERE unit = ? ORDER BY started DESC, id LIMIT ?",
		unit, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		var durationMs int64
		var fingerprint sql.NullString

		if err := rows.Scan(&r.ID, &r.Unit, &r.Format, &r.Outcome, &fingerprint, &started, &durationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Fingerprint = fingerprint.String
		r.Started = time.Unix(started, 0)
		r.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
