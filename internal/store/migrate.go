package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// pgSchema is the PostgreSQL schema. The users and listings tables are
// owned by the marketplace; they are created here too so a fresh chat
// database is usable on its own.
const pgSchema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS listings (
	id BIGSERIAL PRIMARY KEY,
	owner_id BIGINT NOT NULL REFERENCES users(id),
	title TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	room_id TEXT NOT NULL,
	sender_id BIGINT NOT NULL,
	body TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	read_flag BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	recipient_id BIGINT NOT NULL,
	type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	body TEXT NOT NULL DEFAULT '',
	payload JSONB NOT NULL DEFAULT '{}',
	read_flag BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS unread_counters (
	recipient_id BIGINT NOT NULL,
	room_id TEXT NOT NULL,
	count BIGINT NOT NULL DEFAULT 0,
	last_message_id TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (recipient_id, room_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_notifications_recipient ON notifications(recipient_id, read_flag);
CREATE INDEX IF NOT EXISTS idx_listings_owner ON listings(owner_id);
`

// RunMigrations applies the schema to the PostgreSQL database.
func RunMigrations(databaseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, pgSchema)
	return err
}
