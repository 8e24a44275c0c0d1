// Package postgres opens the database handle and bootstraps the schema.
package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
-- Accounts
CREATE TABLE IF NOT EXISTS accounts (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL CHECK (role IN ('voter', 'admin')),
    password_hash TEXT NOT NULL,
    voter_id TEXT UNIQUE,
    full_name TEXT NOT NULL,
    profile_name TEXT,
    profile_age INTEGER,
    profile_address TEXT,
    profile_photo_ref TEXT,
    profile_document_ref TEXT,
    profile_complete BOOLEAN NOT NULL DEFAULT FALSE,
    verified_by_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_pending
    ON accounts(profile_complete, verified_by_admin);

-- Elections. Rosters and dates are immutable after creation.
CREATE TABLE IF NOT EXISTS elections (
    id UUID PRIMARY KEY,
    title TEXT NOT NULL,
    candidates TEXT[] NOT NULL,
    start_date TIMESTAMPTZ NOT NULL,
    end_date TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

-- Ballots. The unique constraint on (account_id, election_id) is the
-- authoritative at-most-once guard for concurrent vote submissions.
-- election_id carries no foreign key: ballots are append-only history and
-- must survive election deletion; the history join tolerates the gap.
CREATE TABLE IF NOT EXISTS ballots (
    id UUID PRIMARY KEY,
    account_id UUID NOT NULL REFERENCES accounts(id),
    election_id UUID NOT NULL,
    candidate_name TEXT NOT NULL,
    voted_at TIMESTAMPTZ NOT NULL,
    UNIQUE (account_id, election_id)
);

CREATE INDEX IF NOT EXISTS idx_ballots_account ON ballots(account_id);

-- Audit trail (operational, not tamper-proof).
CREATE TABLE IF NOT EXISTS audit_events (
    id UUID PRIMARY KEY,
    action TEXT NOT NULL,
    actor_id UUID,
    subject_id UUID,
    detail TEXT,
    occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_subject ON audit_events(subject_id);
`
