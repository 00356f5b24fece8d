package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("METADATA_DRIVER", "")
	t.Setenv("IDENTITY_TOKEN_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BackendURL != "http://127.0.0.1:8000" {
		t.Fatalf("expected default backend url, got %q", cfg.BackendURL)
	}
	if cfg.MetadataDriver != DriverMemory {
		t.Fatalf("expected memory driver by default, got %q", cfg.MetadataDriver)
	}
	if !cfg.BackendBreakerEnabled {
		t.Fatalf("expected breaker enabled by default")
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := "backend_url: http://backend:9000\nmetadata_driver: postgres\napi_rate_limit_rps: 5\nidentity_token_secret: from-file\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("BACKEND_URL", "")
	t.Setenv("METADATA_DRIVER", "")
	t.Setenv("IDENTITY_TOKEN_SECRET", "")
	t.Setenv("API_RATE_LIMIT_RPS", "12.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BackendURL != "http://backend:9000" {
		t.Fatalf("expected backend url from yaml, got %q", cfg.BackendURL)
	}
	if cfg.MetadataDriver != DriverPostgres {
		t.Fatalf("expected postgres driver from yaml, got %q", cfg.MetadataDriver)
	}
	if cfg.APIRateLimitRPS != 12.5 {
		t.Fatalf("expected env rate limit override, got %v", cfg.APIRateLimitRPS)
	}
	if cfg.IdentityTokenSecret != "from-file" {
		t.Fatalf("expected secret from yaml, got %q", cfg.IdentityTokenSecret)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("IDENTITY_TOKEN_SECRET", "secret")
	t.Setenv("METADATA_DRIVER", "firestore")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestLoadRequiresTokenSecret(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("METADATA_DRIVER", "")
	t.Setenv("IDENTITY_TOKEN_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without token secret")
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("BACKEND_TIMEOUT_SECONDS", "soon")
	if got := mustEnvInt("BACKEND_TIMEOUT_SECONDS", 120); got != 120 {
		t.Fatalf("expected fallback, got %d", got)
	}
}
