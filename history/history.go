// Package history persists completed scan reports to SQLite so the
// operator can revisit earlier analyses. The scanner itself holds no
// state between runs; this store is the only place reports outlive a
// request.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hazyhaar/mdaudit/scan"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a scan ID is unknown.
var ErrNotFound = errors.New("history: scan not found")

// Schema for the scans table. Applied by Store.Init.
const Schema = `
CREATE TABLE IF NOT EXISTS scans (
	scan_id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	total_files INTEGER NOT NULL,
	errored_files INTEGER NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (unixepoch()),
	report_json TEXT NOT NULL
);
`

// Open opens (or creates) the history database with the production
// pragmas applied. The parent directory is created if missing.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return db, nil
}

// Entry is one row of the scan history listing. The full report is loaded
// separately via Get.
type Entry struct {
	ScanID       string `json:"scan_id"`
	Root         string `json:"root"`
	TotalFiles   int    `json:"total_files"`
	ErroredFiles int    `json:"errored_files"`
	CreatedAt    int64  `json:"created_at"`
}

// Store persists scan reports.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store backed by the given database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the scans table if it doesn't exist.
func (s *Store) Init() error {
	_, err := s.db.Exec(Schema)
	return err
}

// Put stores a completed report under id.
func (s *Store) Put(ctx context.Context, id string, rep *scan.Report) error {
	data, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("history: marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scans (scan_id, root, total_files, errored_files, report_json)
		VALUES (?, ?, ?, ?, ?)
	`, id, rep.Root, rep.TotalFiles, rep.ErroredFiles, string(data))
	if err != nil {
		return fmt.Errorf("history: insert scan: %w", err)
	}
	return nil
}

// Get loads the full report stored under id.
func (s *Store) Get(ctx context.Context, id string) (*scan.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT report_json FROM scans WHERE scan_id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("history: read scan: %w", err)
	}
	var rep scan.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return nil, fmt.Errorf("history: decode report: %w", err)
	}
	return &rep, nil
}

// Recent returns the newest n history entries, most recent first.
// Ordering follows insertion order (rowid), so scans recorded within the
// same second still list newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT scan_id, root, total_files, errored_files, created_at
		FROM scans ORDER BY rowid DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("history: list scans: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ScanID, &e.Root, &e.TotalFiles, &e.ErroredFiles, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune deletes all but the newest keep entries.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM scans WHERE scan_id NOT IN (
			SELECT scan_id FROM scans ORDER BY rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return fmt.Errorf("history: prune: %w", err)
	}
	return nil
}
