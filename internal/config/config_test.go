package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("PORT", "8090")
	t.Setenv("BACKEND_URL", "http://localhost:8000/api/")
	t.Setenv("DB_PATH", "./data/dashboard.db")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("HTTP_TIMEOUT", "10s")
	t.Setenv("RESOLVE_TIMEOUT", "15")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BackendURL != "http://localhost:8000/api" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.BackendURL)
	}
	if cfg.Poll.Interval != 5*time.Second {
		t.Errorf("expected 5s poll interval, got %v", cfg.Poll.Interval)
	}
	if cfg.Timeout.Resolve != 15*time.Second {
		t.Errorf("expected bare seconds to parse, got %v", cfg.Timeout.Resolve)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("expected wildcard origin fallback, got %v", cfg.AllowedOrigins)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode with empty FRONTEND_URL")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad poll interval", "POLL_INTERVAL", "soon"},
		{"zero poll interval", "POLL_INTERVAL", "0s"},
		{"relative backend", "BACKEND_URL", "/api"},
		{"empty db path", "DB_PATH", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BACKEND_URL", "http://localhost:8000/api")
			t.Setenv("DB_PATH", "./data/dashboard.db")
			t.Setenv("POLL_INTERVAL", "5s")
			t.Setenv(tt.key, tt.val)

			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")
	got := getEnvList("ALLOWED_ORIGINS", nil)
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %v", got)
	}
}
