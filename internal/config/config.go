// Package config loads service configuration from the environment with an
// optional YAML settings file for non-secret tunables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment names recognized by the service.
const (
	// EnvDevelopment enables debug responses and verbose errors.
	EnvDevelopment = "development"
	// EnvProduction masks internal error details.
	EnvProduction = "production"
)

// Quota policy values controlling behavior when the store is unreachable.
const (
	// PolicyFailOpen allows generation when the quota store cannot be read.
	PolicyFailOpen = "fail_open"
	// PolicyStrict denies generation when the quota store cannot be read.
	PolicyStrict = "strict"
)

// Defaults applied when neither environment nor settings file override them.
const (
	defaultPort            = "3001"
	defaultFreeTierLimit   = 3
	defaultRateLimitWindow = 15 * time.Minute
	defaultRateLimitMax    = 100
	defaultMaxBodyBytes    = 10 << 20
	defaultRequestTimeout  = 60 * time.Second
	defaultHistoryTurns    = 6
	defaultFreeModel       = "claude-3-5-haiku-20241022"
	defaultPremiumModel    = "claude-sonnet-4-20250514"
)

// RetryConfig bounds retries against transient upstream failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"` // Total attempts including the first.
	BaseDelay   time.Duration `yaml:"base_delay"`   // Initial backoff delay.
	MaxDelay    time.Duration `yaml:"max_delay"`    // Backoff ceiling.
}

// Config holds the full runtime configuration.
type Config struct {
	Port        string // HTTP listen port.
	Environment string // development or production.

	AllowedOrigins []string // CORS origins; "*" for permissive.

	DatabaseDSN string // Postgres or SQLite DSN for the subscription store.
	RedisURL    string // Optional Redis URL for shared rate-limit counters.

	IdentityURL       string // Base URL of the hosted identity service.
	IdentityAnonKey   string // Publishable API key sent with token exchanges.
	IdentityJWTSecret string // Optional shared secret for local token verification.

	AnthropicAPIKey  string // Generative-text provider API key.
	AnthropicBaseURL string // Provider base URL override, empty for the default.

	FreeTierLimit int    // Free-tier generation ceiling.
	QuotaPolicy   string // fail_open or strict.

	RateLimitWindow time.Duration // Fixed rate-limit window length.
	RateLimitMax    int           // Requests allowed per window per IP.
	MaxBodyBytes    int64         // JSON body size cap in bytes.

	FreeModel    string // Model used for free-tier requests.
	PremiumModel string // Model used for premium requests.
	HistoryTurns int    // Conversation turns threaded into the prompt.

	RequestTimeout time.Duration // Per-call timeout for outbound requests.
	Retry          RetryConfig   // Bounded retry policy for transient failures.

	LogFile  string // Optional rotating log file path.
	LogLevel string // logrus level name, defaults to info.
}

// settingsFile mirrors the optional YAML tunables file. Secrets never live
// here; those come from the environment only.
type settingsFile struct {
	Port            string        `yaml:"port"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	FreeTierLimit   *int          `yaml:"free_tier_limit"`
	QuotaPolicy     string        `yaml:"quota_policy"`
	RateLimitWindow time.Duration `yaml:"rate_limit_window"`
	RateLimitMax    *int          `yaml:"rate_limit_max"`
	FreeModel       string        `yaml:"free_model"`
	PremiumModel    string        `yaml:"premium_model"`
	HistoryTurns    *int          `yaml:"history_turns"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	Retry           *RetryConfig  `yaml:"retry"`
	LogFile         string        `yaml:"log_file"`
	LogLevel        string        `yaml:"log_level"`
}

// Load builds a Config from the environment, applying the optional settings
// file at settingsPath first. Missing required variables are reported
// together by name.
func Load(settingsPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            defaultPort,
		Environment:     EnvProduction,
		AllowedOrigins:  []string{"*"},
		FreeTierLimit:   defaultFreeTierLimit,
		QuotaPolicy:     PolicyFailOpen,
		RateLimitWindow: defaultRateLimitWindow,
		RateLimitMax:    defaultRateLimitMax,
		MaxBodyBytes:    defaultMaxBodyBytes,
		FreeModel:       defaultFreeModel,
		PremiumModel:    defaultPremiumModel,
		HistoryTurns:    defaultHistoryTurns,
		RequestTimeout:  defaultRequestTimeout,
		Retry:           RetryConfig{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second},
		LogLevel:        "info",
	}

	if settingsPath != "" {
		if errApply := applySettingsFile(cfg, settingsPath); errApply != nil {
			return nil, errApply
		}
	}

	applyEnv(cfg)

	if errValidate := validate(cfg); errValidate != nil {
		return nil, errValidate
	}
	return cfg, nil
}

// IsDevelopment reports whether debug details may be returned to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// applySettingsFile merges the YAML tunables file into cfg.
func applySettingsFile(cfg *Config, path string) error {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return nil
		}
		return fmt.Errorf("config: read settings file: %w", errRead)
	}

	var file settingsFile
	if errUnmarshal := yaml.Unmarshal(data, &file); errUnmarshal != nil {
		return fmt.Errorf("config: parse settings file: %w", errUnmarshal)
	}

	if file.Port != "" {
		cfg.Port = file.Port
	}
	if len(file.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = file.AllowedOrigins
	}
	if file.FreeTierLimit != nil && *file.FreeTierLimit >= 0 {
		cfg.FreeTierLimit = *file.FreeTierLimit
	}
	if file.QuotaPolicy != "" {
		cfg.QuotaPolicy = file.QuotaPolicy
	}
	if file.RateLimitWindow > 0 {
		cfg.RateLimitWindow = file.RateLimitWindow
	}
	if file.RateLimitMax != nil && *file.RateLimitMax > 0 {
		cfg.RateLimitMax = *file.RateLimitMax
	}
	if file.FreeModel != "" {
		cfg.FreeModel = file.FreeModel
	}
	if file.PremiumModel != "" {
		cfg.PremiumModel = file.PremiumModel
	}
	if file.HistoryTurns != nil && *file.HistoryTurns >= 0 {
		cfg.HistoryTurns = *file.HistoryTurns
	}
	if file.RequestTimeout > 0 {
		cfg.RequestTimeout = file.RequestTimeout
	}
	if file.Retry != nil {
		cfg.Retry = *file.Retry
	}
	if file.LogFile != "" {
		cfg.LogFile = file.LogFile
	}
	if file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	return nil
}

// applyEnv overlays environment variables onto cfg.
func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Environment, "ENVIRONMENT")
	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		cfg.AllowedOrigins = splitAndTrim(origins)
	}
	setString(&cfg.DatabaseDSN, "DATABASE_URL")
	setString(&cfg.RedisURL, "REDIS_URL")
	setString(&cfg.IdentityURL, "SUPABASE_URL")
	setString(&cfg.IdentityAnonKey, "SUPABASE_ANON_KEY")
	setString(&cfg.IdentityJWTSecret, "SUPABASE_JWT_SECRET")
	setString(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&cfg.AnthropicBaseURL, "ANTHROPIC_BASE_URL")
	setString(&cfg.QuotaPolicy, "QUOTA_POLICY")
	setInt(&cfg.FreeTierLimit, "FREE_TIER_LIMIT")
	setDuration(&cfg.RateLimitWindow, "RATE_LIMIT_WINDOW")
	setInt(&cfg.RateLimitMax, "RATE_LIMIT_MAX")
	setString(&cfg.LogFile, "LOG_FILE")
	setString(&cfg.LogLevel, "LOG_LEVEL")
}

// validate checks required values and reports every missing name at once.
func validate(cfg *Config) error {
	var missing []string
	for _, required := range []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseDSN},
		{"SUPABASE_URL", cfg.IdentityURL},
		{"SUPABASE_ANON_KEY", cfg.IdentityAnonKey},
		{"ANTHROPIC_API_KEY", cfg.AnthropicAPIKey},
	} {
		if strings.TrimSpace(required.value) == "" {
			missing = append(missing, required.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	switch cfg.QuotaPolicy {
	case PolicyFailOpen, PolicyStrict:
	default:
		return fmt.Errorf("config: invalid QUOTA_POLICY %q (expected %s or %s)", cfg.QuotaPolicy, PolicyFailOpen, PolicyStrict)
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return nil
}

func setString(target *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*target = value
	}
}

func setInt(target *int, key string) {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, errParse := strconv.Atoi(raw); errParse == nil {
			*target = parsed
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if raw := strings.TrimSpace(os.Getenv(key)); raw != "" {
		if parsed, errParse := time.ParseDuration(raw); errParse == nil && parsed > 0 {
			*target = parsed
		}
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
