package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LinkExpirationHours != 1 {
		t.Fatalf("expected 1 expiration hour, got %d", cfg.LinkExpirationHours)
	}
	if cfg.LinkRetentionDays != 7 {
		t.Fatalf("expected 7 retention days, got %d", cfg.LinkRetentionDays)
	}
	if cfg.LinkSweepInterval != 5*time.Minute {
		t.Fatalf("expected 5m sweep interval, got %v", cfg.LinkSweepInterval)
	}
	if cfg.CacheTTL != time.Hour || cfg.CacheMaxEntries != 100 {
		t.Fatalf("unexpected cache defaults ttl=%v max=%d", cfg.CacheTTL, cfg.CacheMaxEntries)
	}
	if cfg.LinkBaseURL != "http://localhost:3000" {
		t.Fatalf("unexpected base url %q", cfg.LinkBaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LINK_EXPIRATION_HOURS", "3")
	t.Setenv("LINK_BASE_URL", "https://portal.example.com")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("EMAIL_SERVER_USERNAME", "portaria@example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LinkExpirationHours != 3 {
		t.Fatalf("expected 3, got %d", cfg.LinkExpirationHours)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Fatalf("expected 90s, got %v", cfg.CacheTTL)
	}
	if cfg.EmailFromAddress != "portaria@example.com" {
		t.Fatalf("expected from address fallback, got %q", cfg.EmailFromAddress)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("LINK_RETENTION_DAYS", "sete")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	t.Setenv("LINK_EXPIRATION_HOURS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadRejectsUnboundedCache(t *testing.T) {
	for _, v := range []string{"0", "-5"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("CACHE_MAX_ENTRIES", v)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), "CACHE_MAX_ENTRIES") {
				t.Fatalf("expected CACHE_MAX_ENTRIES error, got %v", err)
			}
		})
	}
}

func TestLocationFallback(t *testing.T) {
	cfg := &Config{LinkTimezone: "Nowhere/Invalid"}
	if cfg.Location() != time.UTC {
		t.Fatal("expected UTC fallback")
	}
	cfg.LinkTimezone = "America/Sao_Paulo"
	if cfg.Location().String() != "America/Sao_Paulo" {
		t.Fatalf("unexpected location %s", cfg.Location())
	}
}

func TestRedisEnabled(t *testing.T) {
	if (&Config{}).RedisEnabled() {
		t.Fatal("expected redis disabled")
	}
	if !(&Config{RedisURL: "redis://localhost:6379/0"}).RedisEnabled() {
		t.Fatal("expected redis enabled")
	}
}
