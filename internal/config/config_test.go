package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDR", "API_BASE_URL", "STATE_BACKEND", "POLL_INTERVAL_MS", "POLL_MAX_ATTEMPTS", "CORS_ORIGINS", "PUBLIC_URL", "STATE_DIR"} {
		t.Setenv(key, "")
	}
	cfg := FromEnv()

	if cfg.APIBaseURL != "http://127.0.0.1:8000/api" {
		t.Fatalf("unexpected api base url %q", cfg.APIBaseURL)
	}
	if cfg.StateBackend != BackendFile {
		t.Fatalf("expected file backend, got %q", cfg.StateBackend)
	}
	if cfg.RequestTimeout != 5*time.Second || cfg.PollInterval != 2*time.Second || cfg.PollMaxAttempts != 20 {
		t.Fatalf("unexpected timing defaults %+v", cfg)
	}
	if cfg.StateDir != ".storefront" {
		t.Fatalf("unexpected state dir %q", cfg.StateDir)
	}
	if cfg.SuccessURL() != "" {
		t.Fatalf("expected no success url, got %q", cfg.SuccessURL())
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.noor.test/api/")
	t.Setenv("STATE_BACKEND", "Redis")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "9")
	t.Setenv("POLL_INTERVAL_MS", "250")
	t.Setenv("POLL_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://noor.test, http://localhost:3000 ,")
	t.Setenv("PUBLIC_URL", "https://noor.test/")
	t.Setenv("STATE_DIR", "/var/lib/noor")
	cfg := FromEnv()

	if cfg.APIBaseURL != "https://api.noor.test/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.StateBackend != BackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.StateBackend)
	}
	if cfg.RequestTimeout != 9*time.Second || cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.PollMaxAttempts != 20 {
		t.Fatalf("expected invalid attempts to fall back, got %d", cfg.PollMaxAttempts)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSOrigins)
	}
	if cfg.StateDir != "/var/lib/noor" {
		t.Fatalf("expected STATE_DIR to set the state dir, got %q", cfg.StateDir)
	}
	if cfg.SuccessURL() != "https://noor.test/success" {
		t.Fatalf("unexpected success url %q", cfg.SuccessURL())
	}
}
