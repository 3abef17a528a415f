package postgres

// Schema is the complete PostgreSQL schema for the bot. All statements are
// idempotent so the schema can be applied on every open. The shapes match
// the hosted-Postgres tables the admin dashboard reads and writes.
const Schema = `
CREATE TABLE IF NOT EXISTS conversation_memory (
	channel_id      TEXT PRIMARY KEY,
	summary         TEXT NOT NULL DEFAULT '',
	recent_messages JSONB NOT NULL DEFAULT '[]',
	message_count   INTEGER NOT NULL DEFAULT 0,
	last_message_at TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversation_memory_last_message
	ON conversation_memory(last_message_at DESC);

CREATE TABLE IF NOT EXISTS system_instructions (
	id           UUID PRIMARY KEY,
	instructions TEXT NOT NULL,
	is_active    BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

-- At most one active instructions row at any time.
CREATE UNIQUE INDEX IF NOT EXISTS idx_system_instructions_active
	ON system_instructions(is_active) WHERE is_active;

CREATE TABLE IF NOT EXISTS allowed_channels (
	id           UUID PRIMARY KEY,
	channel_id   TEXT NOT NULL UNIQUE,
	channel_name TEXT NOT NULL DEFAULT '',
	server_id    TEXT NOT NULL DEFAULT '',
	server_name  TEXT NOT NULL DEFAULT '',
	is_active    BOOLEAN NOT NULL DEFAULT TRUE,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_allowed_channels_channel_id
	ON allowed_channels(channel_id);
`
