// Package postgres implements repository.ConfigRepository on PostgreSQL
// through a pgx connection pool. It is selected when DATABASE_URL points at
// a postgres server, which is how the bot and the dashboard share state in
// hosted deployments.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sakif/alert-dashboard/internal/repository"
)

var _ repository.ConfigRepository = (*DB)(nil)

// DB wraps a pgxpool.Pool. Every method acquires a connection for one
// statement and the pool takes it back when the statement returns.
type DB struct {
	pool *pgxpool.Pool
}

// New connects to connString, verifies the server answers and creates any
// missing tables.
func New(ctx context.Context, connString string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing connection string: %w", err)
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	db.pool.Close()
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	if err := db.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: ping: %w", err)
	}
	return nil
}

// Each statement is sent on its own; pgx refuses several statements in one
// Exec when arguments are involved and the DDL reads better split anyway.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id       BIGINT PRIMARY KEY,
		username      TEXT NOT NULL DEFAULT '',
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		weekly_budget NUMERIC(20,4) NOT NULL DEFAULT 0,
		dip_budget    NUMERIC(20,4) NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS alert_rules (
		user_id    BIGINT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
		ticker     TEXT NOT NULL CHECK (ticker <> ''),
		drop_pct   NUMERIC(20,4) NOT NULL,
		enabled    BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS dca_rules (
		user_id    BIGINT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
		ticker     TEXT NOT NULL CHECK (ticker <> ''),
		levels     JSONB NOT NULL CHECK (jsonb_typeof(levels) = 'array'),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS plan_items (
		user_id    BIGINT NOT NULL REFERENCES profiles(user_id) ON DELETE CASCADE,
		ticker     TEXT NOT NULL CHECK (ticker <> ''),
		amount     NUMERIC(20,4) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, ticker)
	)`,
	`CREATE TABLE IF NOT EXISTS priorities (
		user_id    BIGINT PRIMARY KEY REFERENCES profiles(user_id) ON DELETE CASCADE,
		tickers    JSONB NOT NULL CHECK (jsonb_typeof(tickers) = 'array'),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// NUMERIC columns are selected as ::text and parsed here so no digit goes
// through a float.
func parseNumeric(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("postgres: numeric %q: %w", s, err)
	}
	return d, nil
}
