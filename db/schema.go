package db

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jmoiron/sqlx"

	"boxoffice/pubsub/outbox"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	event_id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	starts_at TIMESTAMPTZ NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	max_capacity INT NOT NULL DEFAULT 0,
	ticket_price NUMERIC(12, 2) NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_by UUID NOT NULL,
	co_admin_ids TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS sellers (
	seller_id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	quota INT NOT NULL DEFAULT 0,
	tickets_sold INT NOT NULL DEFAULT 0,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	event_id UUID NOT NULL REFERENCES events (event_id),
	created_by UUID NOT NULL
);

CREATE TABLE IF NOT EXISTS tickets (
	ticket_id UUID PRIMARY KEY,
	ticket_number VARCHAR(20) NOT NULL UNIQUE,
	verification_code VARCHAR(16) NOT NULL UNIQUE,
	buyer_name TEXT NOT NULL,
	buyer_phone TEXT NOT NULL,
	buyer_email TEXT NOT NULL DEFAULT '',
	price NUMERIC(12, 2) NOT NULL,
	status TEXT NOT NULL DEFAULT 'valid',
	generated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	used_at TIMESTAMPTZ,
	seller_id UUID NOT NULL REFERENCES sellers (seller_id) ON DELETE RESTRICT,
	event_id UUID NOT NULL REFERENCES events (event_id),
	qr_payload BYTEA NOT NULL,
	revoked_by_cascade BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE INDEX IF NOT EXISTS tickets_seller_idx ON tickets (seller_id);

CREATE TABLE IF NOT EXISTS download_tokens (
	token_id UUID PRIMARY KEY,
	secret TEXT NOT NULL UNIQUE,
	ticket_id UUID NOT NULL REFERENCES tickets (ticket_id) ON DELETE RESTRICT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL,
	used BOOLEAN NOT NULL DEFAULT FALSE,
	used_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS download_tokens_active_idx ON download_tokens (ticket_id) WHERE NOT used;

CREATE TABLE IF NOT EXISTS scan_logs (
	scan_log_id UUID PRIMARY KEY,
	ticket_id UUID REFERENCES tickets (ticket_id),
	admin_id UUID NOT NULL,
	outcome TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	scanned_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS share_logs (
	share_log_id UUID PRIMARY KEY,
	ticket_id UUID NOT NULL REFERENCES tickets (ticket_id),
	method TEXT NOT NULL,
	destination TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	sent_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// InitializeDatabaseSchema creates the domain tables and the outbox table.
// All statements are idempotent, so it is safe to run on every start.
func InitializeDatabaseSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}

	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))
	if err := outbox.InitializeSchema(db.DB, watermillLogger); err != nil {
		return fmt.Errorf("could not initialize outbox schema: %w", err)
	}

	return nil
}
