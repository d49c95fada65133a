// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates and validates a pgxpool connection pool.
// It retries up to 5 times to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Sensible pool defaults for a small service.
	poolCfg.MaxConns = 20
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= 5; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				return pool, nil
			} else {
				err = pingErr
			}
			pool.Close()
		}
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// Migrate creates the schema if it does not exist. The composite unique
// keys back the one-registration-per-user and one-prayer-per-user rules
// even if application-level checks are ever bypassed.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id                TEXT PRIMARY KEY,
			title             TEXT NOT NULL,
			date              TEXT NOT NULL,
			time              TEXT NOT NULL,
			location          TEXT NOT NULL,
			category          TEXT NOT NULL,
			description       TEXT NOT NULL,
			image             TEXT NOT NULL DEFAULT '',
			capacity          INTEGER NOT NULL CHECK (capacity >= 0),
			registrations     INTEGER NOT NULL DEFAULT 0
			                  CHECK (registrations >= 0 AND registrations <= capacity),
			registration_open BOOLEAN NOT NULL DEFAULT TRUE,
			featured          BOOLEAN NOT NULL DEFAULT FALSE,
			status            TEXT NOT NULL DEFAULT 'upcoming',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS event_registrations (
			id            TEXT PRIMARY KEY,
			event_id      TEXT NOT NULL,
			user_id       TEXT NOT NULL,
			registered_at TIMESTAMPTZ NOT NULL,
			UNIQUE (event_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id             TEXT PRIMARY KEY,
			name           TEXT NOT NULL,
			price          DOUBLE PRECISION NOT NULL,
			original_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			category       TEXT NOT NULL,
			description    TEXT NOT NULL,
			image          TEXT NOT NULL DEFAULT '',
			stock          INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			sale           BOOLEAN NOT NULL DEFAULT FALSE,
			featured       BOOLEAN NOT NULL DEFAULT FALSE,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id               TEXT PRIMARY KEY,
			user_id          TEXT NOT NULL,
			user_email       TEXT NOT NULL,
			user_name        TEXT NOT NULL,
			items            JSONB NOT NULL,
			total            DOUBLE PRECISION NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			shipping_address JSONB NOT NULL,
			payment_method   TEXT NOT NULL,
			payment_id       TEXT NOT NULL DEFAULT '',
			notes            TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prayer_requests (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL,
			request      TEXT NOT NULL,
			user_id      TEXT NOT NULL DEFAULT '',
			is_anonymous BOOLEAN NOT NULL DEFAULT FALSE,
			prayer_count INTEGER NOT NULL DEFAULT 0 CHECK (prayer_count >= 0),
			status       TEXT NOT NULL DEFAULT 'active',
			date         TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prayer_actions (
			request_id TEXT NOT NULL,
			user_id    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (request_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS devotionals (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			verse      TEXT NOT NULL,
			verse_text TEXT NOT NULL,
			content    TEXT NOT NULL,
			author     JSONB NOT NULL,
			category   TEXT NOT NULL DEFAULT '',
			likes      INTEGER NOT NULL DEFAULT 0,
			comments   INTEGER NOT NULL DEFAULT 0,
			status     TEXT NOT NULL DEFAULT 'draft',
			date       TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			uid          TEXT PRIMARY KEY,
			email        TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			photo_url    TEXT NOT NULL DEFAULT '',
			phone_number TEXT NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id     TEXT PRIMARY KEY,
			is_admin    BOOLEAN NOT NULL DEFAULT FALSE,
			permissions TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_registrations_event
			ON event_registrations (event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_event_registrations_user
			ON event_registrations (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_prayer_requests_status
			ON prayer_requests (status)`,
		`CREATE INDEX IF NOT EXISTS idx_devotionals_status
			ON devotionals (status)`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}
