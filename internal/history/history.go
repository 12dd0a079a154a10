// Package history persists scan runs in a local SQLite database so scans
// can be compared across invocations of the CLI.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/costscan/internal/scan"
)

// ErrEmpty is returned when no runs have been recorded yet.
var ErrEmpty = errors.New("history: no recorded runs")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     TEXT NOT NULL,
	root           TEXT NOT NULL,
	files_scanned  INTEGER NOT NULL,
	total_findings INTEGER NOT NULL,
	high           INTEGER NOT NULL,
	medium         INTEGER NOT NULL,
	info           INTEGER NOT NULL,
	result_json    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`

// Run is one recorded scan run summary.
type Run struct {
	ID            int64
	StartedAt     time.Time
	Root          string
	FilesScanned  int
	TotalFindings int
	High          int
	Medium        int
	Info          int
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a completed scan result with the full result payload.
func (s *Store) Record(startedAt time.Time, result *scan.Result) (int64, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("marshal result: %w", err)
	}

	var high, medium, info int
	for _, f := range result.Findings {
		switch f.Severity {
		case scan.SeverityHigh:
			high++
		case scan.SeverityMedium:
			medium++
		case scan.SeverityInfo:
			info++
		}
	}

	res, err := s.db.Exec(
		`INSERT INTO runs (started_at, root, files_scanned, total_findings, high, medium, info, result_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		startedAt.UTC().Format(time.RFC3339), result.Root,
		result.Meta.FilesScanned, result.TotalFindings, high, medium, info, payload,
	)
	if err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, root, files_scanned, total_findings, high, medium, info
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Root, &r.FilesScanned,
			&r.TotalFindings, &r.High, &r.Medium, &r.Info); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, started); err == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Last returns the full result of the most recent recorded run.
func (s *Store) Last() (*scan.Result, error) {
	var payload []byte
	err := s.db.QueryRow(`SELECT result_json FROM runs ORDER BY id DESC LIMIT 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("query last run: %w", err)
	}

	var result scan.Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode last run: %w", err)
	}
	return &result, nil
}
