// Package history persists provisioning run records to SQLite so operators
// can inspect what past runs produced.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded provisioning run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string // success | failed
	Repos      []RepoRecord
}

// RepoRecord is the per-repository outcome within a run.
type RepoRecord struct {
	Name   string
	Path   string
	Status string // ok | failed
	Error  string
}

// Store implements run history using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens (or creates) the history database.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		outcome TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS run_repos (
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_run_repos_run ON run_repos(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun writes a run and its per-repository records atomically.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO runs (id, started_at, finished_at, outcome) VALUES (?, ?, ?, ?)",
		run.ID, run.StartedAt.Unix(), run.FinishedAt.Unix(), run.Outcome,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, r := range run.Repos {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_repos (run_id, position, name, path, status, error) VALUES (?, ?, ?, ?, ?, ?)",
			run.ID, i, r.Name, r.Path, r.Status, r.Error,
		); err != nil {
			return fmt.Errorf("insert run repo: %w", err)
		}
	}

	return tx.Commit()
}

// RecentRuns returns up to limit runs, newest first, with their repo records
// in manifest order.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, started_at, finished_at, outcome FROM runs ORDER BY started_at DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Outcome); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		repos, err := s.runRepos(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Repos = repos
	}
	return runs, nil
}

func (s *Store) runRepos(ctx context.Context, runID string) ([]RepoRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, path, status, error FROM run_repos WHERE run_id = ? ORDER BY position",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query run repos: %w", err)
	}
	defer rows.Close()

	var repos []RepoRecord
	for rows.Next() {
		var r RepoRecord
		if err := rows.Scan(&r.Name, &r.Path, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run repo: %w", err)
		}
		repos = append(repos, r)
	}
	return repos, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
