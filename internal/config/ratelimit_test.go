package config

import (
	"testing"
	"time"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	t.Setenv("RATE_LIMIT_MAX", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")
	t.Setenv("RATE_LIMIT_PREFIX", "")

	cfg := LoadRateLimitConfig()
	if !cfg.Enabled {
		t.Fatal("limiter should default to enabled")
	}
	if cfg.Limit != 30 || cfg.Window != time.Minute {
		t.Fatalf("defaults = %d/%v, want 30/1m", cfg.Limit, cfg.Window)
	}
}

func TestLoadRateLimitConfigOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "30s")
	t.Setenv("RATE_LIMIT_PREFIX", "throttle:")

	cfg := LoadRateLimitConfig()
	if cfg.Enabled {
		t.Fatal("limiter should be disabled")
	}
	if cfg.Limit != 5 || cfg.Window != 30*time.Second || cfg.Prefix != "throttle:" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRateLimitConfigClampsBadValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	t.Setenv("RATE_LIMIT_MAX", "0")
	t.Setenv("RATE_LIMIT_WINDOW", "-5s")
	t.Setenv("RATE_LIMIT_PREFIX", "")

	cfg := LoadRateLimitConfig()
	if cfg.Limit != 1 {
		t.Fatalf("limit = %d, want clamp to 1", cfg.Limit)
	}
	if cfg.Window != time.Minute {
		t.Fatalf("window = %v, want fallback to 1m", cfg.Window)
	}
}
