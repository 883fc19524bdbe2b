package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL   string
	Port          string
	LogLevel      string
	WhopAPIKey    string
	WhopAPIURL    string
	WhopCompanyID string
	WebhookSecret string
	CronSecret    string
	RedisAddr     string
	SyncRateLimit time.Duration
	SnapshotHour  int
	RetentionDays int
	HTTPTimeout   time.Duration
}

// Load loads configuration from the environment. A .env file is applied
// first when present, without overriding variables already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		WhopAPIURL:    getEnvOrDefault("WHOP_API_URL", "https://api.whop.com/v5"),
		WhopCompanyID: os.Getenv("WHOP_COMPANY_ID"),
		WebhookSecret: getEnvOrDefault("WHOP_WEBHOOK_SECRET", "dev_fallback_secret_change_in_production"),
		CronSecret:    getEnvOrDefault("CRON_SECRET", "dev_cron_secret"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.WhopAPIKey = os.Getenv("WHOP_API_KEY"); cfg.WhopAPIKey == "" {
		return nil, fmt.Errorf("WHOP_API_KEY environment variable is required")
	}

	rateLimitSecs, err := getEnvInt("SYNC_RATE_LIMIT", 60)
	if err != nil {
		return nil, err
	}
	cfg.SyncRateLimit = time.Duration(rateLimitSecs) * time.Second

	if cfg.SnapshotHour, err = getEnvInt("SNAPSHOT_HOUR", 3); err != nil {
		return nil, err
	}
	if cfg.SnapshotHour < 0 || cfg.SnapshotHour > 23 {
		return nil, fmt.Errorf("SNAPSHOT_HOUR must be between 0 and 23, got %d", cfg.SnapshotHour)
	}

	if cfg.RetentionDays, err = getEnvInt("RETENTION_DAYS", 90); err != nil {
		return nil, err
	}

	timeoutSecs, err := getEnvInt("HTTP_TIMEOUT", 30)
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = time.Duration(timeoutSecs) * time.Second

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or its default
func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, raw)
	}
	return value, nil
}
