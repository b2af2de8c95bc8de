package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/shopcheck/internal/types"
)

// ErrNoRuns is returned when the history is empty
var ErrNoRuns = errors.New("no runs recorded")

// Store keeps the outcome of past verification runs
type Store struct {
	db *sql.DB
}

// New creates a new Store with SQLite backend
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		succeeded BOOLEAN NOT NULL,
		message TEXT NOT NULL,
		screenshots TEXT,
		error_screenshot TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts a run and sets its ID
func (s *Store) SaveRun(r *types.Run) error {
	shotsJSON, err := json.Marshal(r.Screenshots)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		INSERT INTO runs (started_at, finished_at, succeeded, message, screenshots, error_screenshot)
		VALUES (?, ?, ?, ?, ?, ?)
	`, r.StartedAt, r.FinishedAt, r.Succeeded, r.Message, string(shotsJSON), r.ErrorScreenshot)
	if err != nil {
		return err
	}

	r.ID, err = res.LastInsertId()
	return err
}

// RecentRuns returns up to limit runs, newest first
func (s *Store) RecentRuns(limit int) ([]types.Run, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, succeeded, message, screenshots, error_screenshot
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []types.Run
	for rows.Next() {
		var r types.Run
		var shotsJSON string

		err := rows.Scan(
			&r.ID, &r.StartedAt, &r.FinishedAt, &r.Succeeded,
			&r.Message, &shotsJSON, &r.ErrorScreenshot,
		)
		if err != nil {
			return nil, err
		}

		// A bad screenshots column should not hide the rest of the history
		if err := json.Unmarshal([]byte(shotsJSON), &r.Screenshots); err != nil {
			log.Printf("[store] Run %d has unreadable screenshots: %v", r.ID, err)
			r.Screenshots = nil
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// LatestRun returns the most recent run
func (s *Store) LatestRun() (*types.Run, error) {
	runs, err := s.RecentRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// Stats counts recorded runs by outcome
func (s *Store) Stats() (total, failed int, err error) {
	err = s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN succeeded THEN 0 ELSE 1 END), 0)
		FROM runs
	`).Scan(&total, &failed)
	return total, failed, err
}
