package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// OpenSQLite opens (creating if needed) the chat database at path and applies
// the schema. Times are stored as unix nanoseconds so ordering comparisons
// stay numeric.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := strings.TrimSpace(path)
	if dsn == "" {
		return nil, fmt.Errorf("sqlite: empty path")
	}
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer at a time; the driver serialises anyway and this keeps
	// transactions from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := initSQLite(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func initSQLite(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			email        TEXT NOT NULL UNIQUE COLLATE NOCASE,
			name         TEXT NOT NULL DEFAULT '',
			image        TEXT,
			created_at   INTEGER NOT NULL,
			last_seen_at INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id              TEXT PRIMARY KEY,
			is_group        INTEGER NOT NULL DEFAULT 0,
			name            TEXT,
			direct_key      TEXT UNIQUE,
			created_at      INTEGER NOT NULL,
			last_message_at INTEGER NOT NULL,
			last_message_id TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_members (
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			user_id         TEXT NOT NULL,
			role            INTEGER NOT NULL DEFAULT 0,
			joined_at       INTEGER NOT NULL,
			PRIMARY KEY (conversation_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			id              TEXT NOT NULL UNIQUE,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id       TEXT NOT NULL,
			created_at      INTEGER NOT NULL,
			body            TEXT,
			image           TEXT,
			CHECK (body IS NOT NULL OR image IS NOT NULL)
		)`,
		`CREATE TABLE IF NOT EXISTS message_seen (
			message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			seen_at    INTEGER NOT NULL,
			PRIMARY KEY (message_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_members_user ON conversation_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at, seq)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("sqlite: init: %w", err)
		}
	}
	return nil
}
