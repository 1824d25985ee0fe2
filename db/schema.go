// ABOUTME: Database schema definitions
// ABOUTME: Creates accounts, contacts, social_links, and sync_runs tables for SQLite and PostgreSQL
package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	telegram_id INTEGER NOT NULL UNIQUE,
	username TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	google_access_token TEXT NOT NULL DEFAULT '',
	google_refresh_token TEXT NOT NULL DEFAULT '',
	google_token_type TEXT NOT NULL DEFAULT '',
	google_token_expiry TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	account_id INTEGER NOT NULL,
	external_id TEXT,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_contacts_account_external ON contacts(account_id, external_id);
CREATE INDEX IF NOT EXISTS idx_contacts_account_name ON contacts(account_id, name);

CREATE TABLE IF NOT EXISTS social_links (
	id TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL,
	platform TEXT NOT NULL,
	url TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(contact_id, url),
	FOREIGN KEY (contact_id) REFERENCES contacts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	account_id INTEGER NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	success BOOLEAN NOT NULL DEFAULT FALSE,
	total_contacts INTEGER NOT NULL DEFAULT 0,
	added_contacts INTEGER NOT NULL DEFAULT 0,
	updated_contacts INTEGER NOT NULL DEFAULT 0,
	skipped_contacts INTEGER NOT NULL DEFAULT 0,
	failed_contacts INTEGER NOT NULL DEFAULT 0,
	error_message TEXT,
	FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_account ON sync_runs(account_id, started_at DESC);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id BIGSERIAL PRIMARY KEY,
	telegram_id BIGINT NOT NULL UNIQUE,
	username TEXT NOT NULL DEFAULT '',
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	google_access_token TEXT NOT NULL DEFAULT '',
	google_refresh_token TEXT NOT NULL DEFAULT '',
	google_token_type TEXT NOT NULL DEFAULT '',
	google_token_expiry TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	external_id TEXT,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	company TEXT NOT NULL DEFAULT '',
	position TEXT NOT NULL DEFAULT '',
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_account_external ON contacts(account_id, external_id);
CREATE INDEX IF NOT EXISTS idx_contacts_account_name ON contacts(account_id, name);

CREATE TABLE IF NOT EXISTS social_links (
	id TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	platform TEXT NOT NULL,
	url TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE(contact_id, url)
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	account_id BIGINT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ,
	success BOOLEAN NOT NULL DEFAULT FALSE,
	total_contacts INTEGER NOT NULL DEFAULT 0,
	added_contacts INTEGER NOT NULL DEFAULT 0,
	updated_contacts INTEGER NOT NULL DEFAULT 0,
	skipped_contacts INTEGER NOT NULL DEFAULT 0,
	failed_contacts INTEGER NOT NULL DEFAULT 0,
	error_message TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_account ON sync_runs(account_id, started_at DESC);
`

// InitSchema creates all tables for the database's driver.
func InitSchema(db *sqlx.DB) error {
	schema := sqliteSchema
	if db.DriverName() == DriverPostgres {
		schema = postgresSchema
	} else if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
