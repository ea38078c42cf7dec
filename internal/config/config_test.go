package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SYSTEM_ACCOUNT_ID", "acc-system")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "dev" || cfg.HTTPPort != "8080" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.AccessTTL != 15*time.Minute {
		t.Errorf("access ttl = %v, want 15m", cfg.AccessTTL)
	}
	if cfg.SystemAccountID != "acc-system" {
		t.Errorf("system account = %q", cfg.SystemAccountID)
	}
	if cfg.RateRPS != 100 || cfg.WorkerCount != 4 {
		t.Errorf("rate/worker defaults = %d/%d", cfg.RateRPS, cfg.WorkerCount)
	}
}

func TestLoadOverridesAndRequired(t *testing.T) {
	t.Setenv("SYSTEM_ACCOUNT_ID", "acc-system")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_ACCESS_TTL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "prod" || cfg.AccessTTL != 5*time.Minute {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
