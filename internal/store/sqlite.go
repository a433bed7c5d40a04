package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Freshness windows. A row older than its window is treated as a miss;
// boundaries are strict (a row exactly at the window edge is stale).
const (
	profileTTL = 24 * time.Hour
	libraryTTL = 5 * time.Minute
	detailsTTL = 7 * 24 * time.Hour
)

// legacyStatusFile is the flat-file status store consumed once per store
// lifetime, expected next to the database file.
const legacyStatusFile = "game_status.json"

// SQLiteStore is the SQLite-backed cache for profiles, libraries, game
// metadata, recommendations and user status records.
type SQLiteStore struct {
	db         *sql.DB
	legacyPath string
	legacyOnce sync.Once
}

// NewSQLiteStore opens (creating if needed) the cache database.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	legacyPath := legacyStatusFile
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		legacyPath = filepath.Join(dir, legacyStatusFile)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, legacyPath: legacyPath}, nil
}

// enablePragmas sets SQLite pragmas for performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetStats returns aggregate counts for the health endpoint.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM game_details").Scan(&stats.GameCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM user_profiles").Scan(&stats.UserCount); err != nil {
		return nil, err
	}
	return &stats, nil
}

// formatTime renders a timestamp in the canonical column format. All
// timestamps are stored as RFC3339 UTC strings, which compare
// lexicographically in SQL.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTime is the inverse of formatTime. Unparseable values come back as
// the zero time, which every freshness predicate treats as stale.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// nullableString converts an empty string to SQL NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
