// Package storage keeps the history of persisted crawl runs in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when no run matches.
var ErrNotFound = errors.New("run not found")

// Run is one recorded crawl run.
type Run struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Dir         string    `json:"dir"`
	Status      string    `json:"status"`
	Success     bool      `json:"success"`
	Pages       int       `json:"pages"`
	Failed      int       `json:"failed"`
	CreditsUsed int       `json:"credits_used"`
	CreatedAt   time.Time `json:"created_at"`
}

// Storage manages the run history database.
type Storage struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	url          TEXT NOT NULL,
	dir          TEXT NOT NULL,
	status       TEXT NOT NULL,
	success      INTEGER NOT NULL,
	pages        INTEGER NOT NULL,
	failed       INTEGER NOT NULL,
	credits_used INTEGER NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// NewStorage creates or opens the database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate db: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// RecordRun stores a run. A run with the same ID is replaced.
func (s *Storage) RecordRun(run *Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO runs (id, url, dir, status, success, pages, failed, credits_used, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.URL, run.Dir, run.Status, run.Success, run.Pages, run.Failed, run.CreditsUsed,
		run.CreatedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

const selectRuns = `SELECT id, url, dir, status, success, pages, failed, credits_used, created_at FROM runs`

// GetRun retrieves a run by its ID.
func (s *Storage) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// LatestRun returns the most recently recorded run.
func (s *Storage) LatestRun() (*Run, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *Storage) ListRuns(limit int) ([]*Run, error) {
	query := selectRuns + ` ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run record. The run directory is left alone.
func (s *Storage) DeleteRun(id string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var createdAt int64
	err := sc.Scan(&run.ID, &run.URL, &run.Dir, &run.Status, &run.Success,
		&run.Pages, &run.Failed, &run.CreditsUsed, &createdAt)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(0, createdAt).UTC()
	return &run, nil
}

// Clean removes every run record and returns how many were removed.
func (s *Storage) Clean() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM runs`)
	if err != nil {
		return 0, fmt.Errorf("failed to clean db: %w", err)
	}
	return res.RowsAffected()
}
