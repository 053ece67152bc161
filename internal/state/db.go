// Package state provides SQLite-backed persistence for Task Genie: processing
// results, prompt overrides and emitted metrics. The knowledge base shares the
// same database file through ApplyMigrations.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	// DriverSQLite is the pure-Go modernc.org/sqlite driver.
	DriverSQLite = "sqlite"
	// DriverSQLite3 is the cgo github.com/mattn/go-sqlite3 driver. Full-text
	// search requires building with the sqlite_fts5 tag.
	DriverSQLite3 = "sqlite3"
)

// DB wraps an SQLite database connection.
type DB struct {
	conn   *sql.DB
	path   string
	driver string
	mu     sync.RWMutex
}

// DefaultDBPath returns the default database location.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "taskgenie", "taskgenie.db")
}

// Open opens an SQLite database at the given path with the default driver.
func Open(path string) (*DB, error) {
	return OpenWithDriver(DriverSQLite, path)
}

// OpenWithDriver opens an SQLite database at the given path using the named
// driver. It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func OpenWithDriver(driver, path string) (*DB, error) {
	switch driver {
	case "":
		driver = DriverSQLite
	case DriverSQLite, DriverSQLite3:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{conn: conn, path: path, driver: driver}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// Migration is a versioned schema change.
type Migration struct {
	Version int
	SQL     string
}

// Migrate applies all pending core schema migrations.
func (db *DB) Migrate() error {
	return db.ApplyMigrations("schema_version", coreMigrations)
}

// ApplyMigrations applies the migrations newer than the highest version
// recorded in versionTable, each in its own transaction. Separate version
// tables let independent components share one database.
func (db *DB) ApplyMigrations(versionTable string, migrations []Migration) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`, versionTable))
	if err != nil {
		return fmt.Errorf("create %s table: %w", versionTable, err)
	}

	var currentVersion int
	row := db.conn.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", versionTable))
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.Version, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("INSERT INTO %s (version) VALUES (?)", versionTable), m.Version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.Version, err)
		}
	}

	return nil
}

var coreMigrations = []Migration{
	{1, migrationV1Results},
	{2, migrationV2PromptOverrides},
	{3, migrationV3Metrics},
}

const migrationV1Results = `
CREATE TABLE IF NOT EXISTS results (
	execution_id TEXT PRIMARY KEY,
	execution_result TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	work_item_id INTEGER NOT NULL,
	work_item_status TEXT NOT NULL,
	work_item_comment TEXT,
	work_item TEXT NOT NULL,
	work_items_count INTEGER NOT NULL DEFAULT 0,
	work_item_ids TEXT,
	work_items TEXT,
	changed_by TEXT,
	area_path TEXT,
	iteration_path TEXT,
	business_unit TEXT,
	system TEXT
);

CREATE INDEX IF NOT EXISTS idx_results_work_item_id ON results(work_item_id);
CREATE INDEX IF NOT EXISTS idx_results_timestamp ON results(timestamp);
`

const migrationV2PromptOverrides = `
CREATE TABLE IF NOT EXISTS prompt_overrides (
	ado_key TEXT PRIMARY KEY,
	prompt TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const migrationV3Metrics = `
CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	namespace TEXT NOT NULL,
	name TEXT NOT NULL,
	value REAL NOT NULL,
	unit TEXT NOT NULL DEFAULT 'Count',
	dimensions TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_metrics_name ON metrics(name);
`

// Exec executes a query that doesn't return rows.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.ExecContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRowContext(ctx, query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// FormatTime formats a time.Time for SQLite storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTime parses a time string from SQLite.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
