// Package config loads application configuration from the environment,
// with an optional .env file for development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime settings.
type Config struct {
	// EbayAppID enables the Finding API client; empty falls back to the
	// HTML scraping provider.
	EbayAppID string
	Sandbox   bool

	// Backend selects the KV store: memory, file, sqlite, or redis.
	Backend    string
	FilePath   string
	SQLitePath string
	RedisURL   string

	CacheTTL           time.Duration
	HTTPTimeout        time.Duration
	AnalyticsRetention int

	// RefreshSchedule is a cron expression for the saved-query refresh
	// job; empty disables it.
	RefreshSchedule string
	RefreshWindow   time.Duration

	UserID string
}

// Load reads the optional .env file and the environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		EbayAppID: getEnv("EBAY_APP_ID", ""),
		Sandbox:   getEnvBool("EBAY_SANDBOX", false),

		Backend:    getEnv("PRICEWATCH_BACKEND", "file"),
		FilePath:   getEnv("PRICEWATCH_FILE", "pricewatch.json"),
		SQLitePath: getEnv("PRICEWATCH_SQLITE", "pricewatch.db"),
		RedisURL:   getEnv("PRICEWATCH_REDIS_URL", "redis://localhost:6379/0"),

		CacheTTL:           getEnvDuration("PRICEWATCH_CACHE_TTL", time.Hour),
		HTTPTimeout:        getEnvDuration("PRICEWATCH_HTTP_TIMEOUT", 15*time.Second),
		AnalyticsRetention: getEnvInt("PRICEWATCH_ANALYTICS_RETENTION", 1000),

		RefreshSchedule: getEnv("PRICEWATCH_REFRESH_SCHEDULE", ""),
		RefreshWindow:   getEnvDuration("PRICEWATCH_REFRESH_WINDOW", 10*time.Minute),

		UserID: getEnv("PRICEWATCH_USER_ID", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
