package database

import (
	"strings"
	"testing"
)

func TestNormalizeDSN(t *testing.T) {
	tests := map[string]string{
		" postgresql+asyncpg://u:p@db:5432/chat ": "postgresql://u:p@db:5432/chat",
		"postgres+pgx://db/chat":                  "postgres://db/chat",
		"postgres://db/chat?sslmode=disable":      "postgres://db/chat?sslmode=disable",
		"":                                        "",
	}
	for in, want := range tests {
		if got := normalizeDSN(in); got != want {
			t.Errorf("normalizeDSN(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPostgresSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"chat.users", "chat.conversation", "chat.participant", "chat.message", "chat.message_seen"} {
		if !strings.Contains(postgresSchema, "CREATE TABLE IF NOT EXISTS "+table+" (") {
			t.Errorf("schema is missing %s", table)
		}
	}
}
