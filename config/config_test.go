package config

import (
	"os"
	"testing"
	"time"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestParseDefaults(t *testing.T) {
	for _, key := range []string{"APP_ENV", "PORT", "DATABASE_URL", "DATABASE_HOST", "DATABASE_PORT",
		"DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_NAME", "DATABASE_SSLMODE", "DATABASE_POOL_SIZE",
		"ALLOWED_ORIGINS", "PROFILE_REFRESH_INTERVAL"} {
		unsetenv(t, key)
	}

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Port != "5200" {
		t.Fatalf("unexpected port %q", cfg.Port)
	}
	if cfg.Production() {
		t.Fatalf("empty APP_ENV must not be production")
	}
	if cfg.ProfileRefreshInterval != 6*time.Hour {
		t.Fatalf("unexpected refresh interval %v", cfg.ProfileRefreshInterval)
	}
	if cfg.Database.PoolSize != 5 {
		t.Fatalf("unexpected pool size %d", cfg.Database.PoolSize)
	}
	want := "host=localhost port=5432 user=user password=pwd dbname=database sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Fatalf("DSN = %q, want %q", got, want)
	}
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/cup")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PROFILE_REFRESH_INTERVAL", "30m")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.Production() {
		t.Fatalf("APP_ENV=Production should enable production mode")
	}
	if cfg.Database.DSN() != "postgres://u:p@db:5432/cup" {
		t.Fatalf("DATABASE_URL should win, got %q", cfg.Database.DSN())
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins not trimmed: %#v", cfg.AllowedOrigins)
	}
	if cfg.ProfileRefreshInterval != 30*time.Minute {
		t.Fatalf("unexpected refresh interval %v", cfg.ProfileRefreshInterval)
	}
}
