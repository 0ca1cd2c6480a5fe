package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("REFRESH_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.IsDev() {
		t.Fatalf("expected development config")
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		t.Fatalf("expected dev secrets to be filled in")
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "a")
	t.Setenv("REFRESH_SECRET", "b")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}
}

func TestLoadDurationOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("ACCESS_TOKEN_TTL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s shutdown, got %s", cfg.ShutdownPeriod)
	}
	if cfg.IdempotencyTTL != 90*time.Minute {
		t.Fatalf("expected 90m idempotency ttl, got %s", cfg.IdempotencyTTL)
	}
	if cfg.AccessTokenTTL != 2*time.Minute {
		t.Fatalf("expected 2m access ttl, got %s", cfg.AccessTokenTTL)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid SHUTDOWN_TIMEOUT error")
	}
}
