package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Agency markup floors per item type, enforced before any quote or item
	// markup update is persisted. Zero disables the floor.
	MinMarkupFlight   float64
	MinMarkupHotel    float64
	MinMarkupTour     float64
	MinMarkupTransfer float64

	QuoteDefaultMarkup float64
	CurrencyCode       string

	TemplateCacheTTL time.Duration
	IdempotencyTTL   time.Duration

	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	GmailFromAddress  string

	OutboxDrainInterval time.Duration
	OutboxBatchSize     int
	OutboxMaxAttempts   int
	OutboxBackoffBase   time.Duration

	AuthRateLimitMax    int
	AuthRateLimitWindow time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AccessTokenTTL:  parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL: parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),

		MinMarkupFlight:   parseFloat(k.String("PRICING_MIN_MARKUP_FLIGHT"), 0),
		MinMarkupHotel:    parseFloat(k.String("PRICING_MIN_MARKUP_HOTEL"), 0),
		MinMarkupTour:     parseFloat(k.String("PRICING_MIN_MARKUP_TOUR"), 0),
		MinMarkupTransfer: parseFloat(k.String("PRICING_MIN_MARKUP_TRANSFER"), 0),

		QuoteDefaultMarkup: parseFloat(k.String("PRICING_DEFAULT_MARKUP"), 10),
		CurrencyCode:       valueOrDefault(k.String("PRICING_CURRENCY"), "USD"),

		TemplateCacheTTL: parseDuration(k.String("TEMPLATE_CACHE_TTL"), "5m"),
		IdempotencyTTL:   parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		GmailClientID:     k.String("GMAIL_CLIENT_ID"),
		GmailClientSecret: k.String("GMAIL_CLIENT_SECRET"),
		GmailRefreshToken: k.String("GMAIL_REFRESH_TOKEN"),
		GmailFromAddress:  k.String("GMAIL_FROM_ADDRESS"),

		OutboxDrainInterval: parseDuration(k.String("OUTBOX_DRAIN_INTERVAL"), "5s"),
		OutboxBatchSize:     parseInt(k.String("OUTBOX_BATCH_SIZE"), 25),
		OutboxMaxAttempts:   parseInt(k.String("OUTBOX_MAX_ATTEMPTS"), 5),
		OutboxBackoffBase:   parseDuration(k.String("OUTBOX_BACKOFF_BASE"), "30s"),

		AuthRateLimitMax:    parseInt(k.String("AUTH_RATE_LIMIT_MAX"), 10),
		AuthRateLimitWindow: parseDuration(k.String("AUTH_RATE_LIMIT_WINDOW"), "1m"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// MinMarkupFor returns the configured markup floor for an item type.
func (c *Config) MinMarkupFor(itemType string) float64 {
	switch strings.ToLower(strings.TrimSpace(itemType)) {
	case "flight":
		return c.MinMarkupFlight
	case "hotel":
		return c.MinMarkupHotel
	case "tour":
		return c.MinMarkupTour
	case "transfer":
		return c.MinMarkupTransfer
	default:
		return 0
	}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
