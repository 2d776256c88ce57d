// Package db provides SQLite persistence for timeline items and places.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeoutMs = 5000

// Config contains database settings.
type Config struct {
	Path          string
	BusyTimeoutMs int
}

// DB wraps the sql handle.
type DB struct {
	*sql.DB
	path  string
	retry retryPolicy
}

// Open opens (creating if needed) the database at cfg.Path and ensures the schema.
func Open(cfg Config) (*DB, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	busy := cfg.BusyTimeoutMs
	if busy <= 0 {
		busy = defaultBusyTimeoutMs
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)", path, busy)

	return open(dsn, path, 0, newRetryPolicy(busy))
}

// OpenInMemory opens a private in-memory database.
func OpenInMemory() (*DB, error) {
	// Every pooled connection to :memory: would see its own database.
	return open(":memory:", ":memory:", 1, newRetryPolicy(defaultBusyTimeoutMs))
}

func open(dsn, path string, maxConns int, retry retryPolicy) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if maxConns > 0 {
		sqlDB.SetMaxOpenConns(maxConns)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{DB: sqlDB, path: path, retry: retry}
	if err := db.ensureSchema(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database location.
func (db *DB) Path() string {
	return db.path
}

// Close releases the handle. It is safe on a nil DB.
func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}

func (db *DB) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS timeline_items (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			start_ns INTEGER,
			end_ns INTEGER,
			invalidated INTEGER NOT NULL DEFAULT 0,
			worth_keeping INTEGER NOT NULL DEFAULT 0,
			merge_locked INTEGER NOT NULL DEFAULT 0,
			detail_json TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS places (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			radius_meters REAL NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS timeline_items_range_idx ON timeline_items(start_ns, end_ns)`,
		`CREATE INDEX IF NOT EXISTS places_name_idx ON places(name)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
