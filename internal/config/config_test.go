package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PRESENCE_TIMEOUT", "45s")
	t.Setenv("MESSAGE_PAGE_SIZE", "20")
	t.Setenv("DB_URL", "")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.PresenceTimeout != 45*time.Second {
		t.Errorf("PresenceTimeout = %v", cfg.PresenceTimeout)
	}
	if cfg.MessagePageSize != 20 || cfg.MessagePageMax != 50 {
		t.Errorf("page sizes = %d/%d", cfg.MessagePageSize, cfg.MessagePageMax)
	}
	if cfg.Store() != StoreMemory {
		t.Errorf("Store() = %s, want memory", cfg.Store())
	}
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("HTTP_ADDR", ":9000")
	t.Setenv("DB_URL", "")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := Load([]string{"--addr", ":9999", "--sqlite", "/tmp/chat.db"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want flag value", cfg.HTTPAddr)
	}
	if cfg.Store() != StoreSQLite {
		t.Errorf("Store() = %s, want sqlite", cfg.Store())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]map[string]string{
		"missing secret":  {"JWT_SECRET": ""},
		"bad duration":    {"JWT_SECRET": "x", "PRESENCE_TIMEOUT": "soon"},
		"bad int":         {"JWT_SECRET": "x", "READ_RETRIES": "three"},
		"page over limit": {"JWT_SECRET": "x", "MESSAGE_PAGE_SIZE": "80"},
		"timeout <= ping": {"JWT_SECRET": "x", "PRESENCE_TIMEOUT": "20s"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
