// Package sqlite implements repository.ConfigRepository on SQLite.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, so you need a C compiler and cross-compilation
// becomes painful. modernc.org/sqlite is a pure Go translation of SQLite.
//
// This is the default backend: a single file next to the binary, no server.
// The alerting bot opens the same file read-only.
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB      : a connection pool (NOT a single connection!)
//   - sql.Row     : a single result row
//   - sql.Rows    : multiple result rows (must be closed!)
//
// Each repository method borrows a connection from the pool for one
// statement and returns it when the statement finishes, on every path.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	// BLANK IMPORT:
	// The sqlite package's init() registers a database/sql driver named "sqlite".
	_ "modernc.org/sqlite"

	"github.com/sakif/alert-dashboard/internal/repository"
)

// compile-time check that *DB implements repository.ConfigRepository
var _ repository.ConfigRepository = (*DB)(nil)

// filePragmas are applied to every pooled connection through the DSN.
// busy_timeout makes a writer wait for the lock instead of failing
// immediately when another request is mid-write.
const filePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and creates any missing tables.
//
// dbPath examples:
//   - "data/dashboard.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database (tests)
//
// An in-memory database exists per connection, so the pool is pinned to a
// single connection in that case; otherwise a second pooled connection
// would see an empty database.
func New(dbPath string) (*DB, error) {
	dsn := dbPath
	memory := dbPath == ":memory:"
	if !memory {
		dsn = "file:" + dbPath + "?" + filePragmas
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if memory {
		conn.SetMaxOpenConns(1)
	}

	// Ping forces a real connection so a bad path fails here, not on the
	// first request.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if memory {
		if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by /health.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the five tables if they are absent.
//
// Decimal columns are TEXT holding the exact decimal string, which keeps
// every digit the user typed. DCA levels and the priority list are JSON
// arrays guarded by json_valid.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS profiles (
			user_id       INTEGER PRIMARY KEY,
			username      TEXT NOT NULL DEFAULT '',
			first_name    TEXT NOT NULL DEFAULT '',
			last_name     TEXT NOT NULL DEFAULT '',
			weekly_budget TEXT NOT NULL DEFAULT '0',
			dip_budget    TEXT NOT NULL DEFAULT '0',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating profiles table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS alert_rules (
			user_id    INTEGER NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			ticker     TEXT NOT NULL CHECK (ticker <> ''),
			drop_pct   TEXT NOT NULL,
			enabled    INTEGER NOT NULL DEFAULT 1,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, ticker)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating alert_rules table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS dca_rules (
			user_id    INTEGER NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			ticker     TEXT NOT NULL CHECK (ticker <> ''),
			levels     TEXT NOT NULL CHECK (json_valid(levels)),
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, ticker)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating dca_rules table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS plan_items (
			user_id    INTEGER NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
			ticker     TEXT NOT NULL CHECK (ticker <> ''),
			amount     TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, ticker)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating plan_items table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS priorities (
			user_id    INTEGER PRIMARY KEY REFERENCES profiles(user_id) ON DELETE CASCADE,
			tickers    TEXT NOT NULL CHECK (json_valid(tickers)),
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating priorities table: %w", err)
	}

	return nil
}
