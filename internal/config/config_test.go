package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "file:test.db")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon-key")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
}

func TestLoadReportsAllMissingVariablesByName(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "SUPABASE_URL", "SUPABASE_ANON_KEY", "ANTHROPIC_API_KEY"} {
		t.Setenv(key, "")
	}

	_, errLoad := Load("")
	if errLoad == nil {
		t.Fatal("expected error for missing required variables")
	}
	for _, name := range []string{"DATABASE_URL", "SUPABASE_URL", "SUPABASE_ANON_KEY", "ANTHROPIC_API_KEY"} {
		if !strings.Contains(errLoad.Error(), name) {
			t.Fatalf("error %q missing variable name %s", errLoad.Error(), name)
		}
	}
	if strings.Contains(errLoad.Error(), "sk-ant") {
		t.Fatalf("error %q leaks a value", errLoad.Error())
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, errLoad := Load("")
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.FreeTierLimit != 3 {
		t.Fatalf("expected free tier limit 3, got %d", cfg.FreeTierLimit)
	}
	if cfg.QuotaPolicy != PolicyFailOpen {
		t.Fatalf("expected default quota policy %s, got %s", PolicyFailOpen, cfg.QuotaPolicy)
	}
	if cfg.RateLimitWindow != 15*time.Minute || cfg.RateLimitMax != 100 {
		t.Fatalf("unexpected rate limit defaults: %v / %d", cfg.RateLimitWindow, cfg.RateLimitMax)
	}
	if cfg.MaxBodyBytes != 10<<20 {
		t.Fatalf("expected 10MB body cap, got %d", cfg.MaxBodyBytes)
	}
	if cfg.IsDevelopment() {
		t.Fatal("expected production by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("QUOTA_POLICY", PolicyStrict)
	t.Setenv("FREE_TIER_LIMIT", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://staging.example.com")

	cfg, errLoad := Load("")
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if !cfg.IsDevelopment() {
		t.Fatal("expected development environment")
	}
	if cfg.QuotaPolicy != PolicyStrict {
		t.Fatalf("expected strict policy, got %s", cfg.QuotaPolicy)
	}
	if cfg.FreeTierLimit != 5 {
		t.Fatalf("expected limit 5, got %d", cfg.FreeTierLimit)
	}
	if cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected 1m window, got %v", cfg.RateLimitWindow)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://staging.example.com" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidQuotaPolicy(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("QUOTA_POLICY", "sometimes")

	if _, errLoad := Load(""); errLoad == nil {
		t.Fatal("expected error for invalid quota policy")
	}
}

func TestLoadSettingsFileOverriddenByEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FREE_TIER_LIMIT", "7")

	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "free_tier_limit: 4\nrate_limit_max: 10\nfree_model: test-model\n"
	if errWrite := os.WriteFile(path, []byte(content), 0600); errWrite != nil {
		t.Fatalf("write settings: %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("load: %v", errLoad)
	}
	if cfg.FreeTierLimit != 7 {
		t.Fatalf("env should win over the settings file, got %d", cfg.FreeTierLimit)
	}
	if cfg.RateLimitMax != 10 {
		t.Fatalf("expected rate limit max 10 from file, got %d", cfg.RateLimitMax)
	}
	if cfg.FreeModel != "test-model" {
		t.Fatalf("expected free model from file, got %s", cfg.FreeModel)
	}
}

func TestLoadMissingSettingsFileIsNotAnError(t *testing.T) {
	setRequiredEnv(t)

	if _, errLoad := Load(filepath.Join(t.TempDir(), "absent.yaml")); errLoad != nil {
		t.Fatalf("missing settings file should be ignored: %v", errLoad)
	}
}
