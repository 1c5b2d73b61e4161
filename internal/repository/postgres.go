package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id            TEXT PRIMARY KEY,
	source_origin TEXT NOT NULL,
	source_id     TEXT,
	title         TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	venue         TEXT NOT NULL DEFAULT '',
	image_url     TEXT NOT NULL DEFAULT '',
	ticket_url    TEXT NOT NULL DEFAULT '',
	start_time    TIMESTAMP,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS events_source_identity_uidx ON events (source_origin, source_id);
CREATE INDEX IF NOT EXISTS events_start_time_idx ON events (start_time);

CREATE TABLE IF NOT EXISTS otp_records (
	id        TEXT PRIMARY KEY,
	email     TEXT NOT NULL,
	code      TEXT NOT NULL,
	issued_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS otp_records_email_issued_idx ON otp_records (email, issued_at DESC);

CREATE TABLE IF NOT EXISTS verified_emails (
	email       TEXT PRIMARY KEY,
	verified_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS email_submissions (
	id           TEXT PRIMARY KEY,
	email        TEXT NOT NULL,
	event_id     TEXT,
	submitted_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS email_submissions_email_uidx ON email_submissions (email);
`

// ConnectDB opens a pgx pool and checks it answers.
func ConnectDB(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the tables and the unique indexes the upserts rely on.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func NewPostgresStore(db *pgxpool.Pool) *Store {
	return NewStore(
		NewEventRepo(db),
		NewOTPRepo(db),
		NewVerificationRepo(db),
		NewSubmissionRepo(db),
		db.Ping,
		db.Close,
	)
}
