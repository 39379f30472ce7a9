package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/production")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GetIdempotencyTTL() != 24*time.Hour {
		t.Fatalf("expected 24h idempotency ttl, got %s", cfg.GetIdempotencyTTL())
	}
	if cfg.GetRealtimeIdleTimeout() <= cfg.GetRealtimeHeartbeatInterval() {
		t.Fatal("idle timeout must exceed heartbeat interval")
	}
	if cfg.GetEmailEnabled() {
		t.Fatal("email must stay disabled without SMTP_HOST")
	}
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}

func TestLoadRejectsWildcardWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/production")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard origins with credentials")
	}
}

func TestLoadRejectsMinConnsAboveMax(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/production")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("DB_MIN_CONNS", "8")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DB_MIN_CONNS exceeds DB_MAX_CONNS")
	}
}
