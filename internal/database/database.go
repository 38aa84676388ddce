// Package database owns the single SQLite-class store that backs the
// identity map, translation cache, processed/failed logs, media metadata
// mirror, watchlist, actor subscriptions and custom collections.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DB is the handle shared by every component that needs persistence.
// WithTx takes mu exclusively and WithReadTx takes it shared; the
// package's helper functions called directly on Raw() do not take mu.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at the default config location.
func Open() (*DB, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}
	return OpenPath(filepath.Join(configDir, "emby-actor-processor", "processor.db"))
}

// OpenPath opens or creates the database at a specific path.
func OpenPath(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &DB{db: sqlDB, path: path}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return d, nil
}

// OpenInMemory opens an in-memory database, primarily for tests.
func OpenInMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:?_cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping in-memory database: %w", err)
	}

	d := &DB{db: sqlDB, path: ":memory:"}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate in-memory database: %w", err)
	}
	return d, nil
}

func (d *DB) Close() error { return d.db.Close() }
func (d *DB) Path() string { return d.path }

func (d *DB) migrate() error { return applyMigrations(d.db) }

// Raw returns the underlying *sql.DB for callers (e.g. a task's own
// connection for a batched transaction) that need direct access.
func (d *DB) Raw() *sql.DB { return d.db }

// WithTx runs fn inside a transaction, rolling back on any error or panic.
// Every multi-statement mutation in this package goes through here so a
// single item's worth of work (executed inside a single database
// transaction per item") commits or rolls back atomically.
func (d *DB) WithTx(fn func(tx *sql.Tx) error) (err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// WithReadTx runs fn inside a read-only lock, allowing concurrent readers
// while a writer holds the exclusive mu.Lock above.
func (d *DB) WithReadTx(fn func(db *sql.DB) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return fn(d.db)
}
