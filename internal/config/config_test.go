package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsApply(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("expected development environment, got %s", cfg.Server.Environment)
	}
	if cfg.RateLimit.IP.Limit != 5 || cfg.RateLimit.IP.WindowSeconds != 60 {
		t.Errorf("unexpected default ip limit: %+v", cfg.RateLimit.IP)
	}
	if cfg.RateLimit.Contact.Window() != 5*time.Minute {
		t.Errorf("expected 5m contact window, got %v", cfg.RateLimit.Contact.Window())
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("RATE_LIMIT_IP", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero limit")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("RATE_LIMIT_CONTACT", "10")
	t.Setenv("TURNSTILE_BYPASS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("expected production environment")
	}
	if cfg.RateLimit.Contact.Limit != 10 {
		t.Errorf("expected contact limit 10, got %d", cfg.RateLimit.Contact.Limit)
	}
	if !cfg.Turnstile.BypassEnabled {
		t.Error("expected bypass enabled")
	}
}
