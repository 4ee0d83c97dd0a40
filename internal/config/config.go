// Package config loads application settings from the environment, after
// merging a .env file when one is present.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	// API client
	APIBaseURL       string
	APIToken         string
	APIRatePerSecond float64
	APITimeout       time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Upload gate
	MaxUploadSizeBytes int64
	AllowedUploadTypes []string

	// Extraction polling; PollMaxAttempts 0 polls until a terminal state
	PollInterval    time.Duration
	PollMaxAttempts int

	// Drafts are kept in memory unless DraftBucket is set
	DraftTTL    time.Duration
	DraftBucket string

	// Local backend
	UploadBucket    string
	CodesFile       string
	BigQueryProject string
	BigQueryDataset string
	GeminiModel     string

	// Warnings lists settings that were invalid and fell back to defaults.
	Warnings []string
}

// Load reads the configuration. A .env file in the current or parent
// directory is merged first; variables already set in the process win.
func Load() (*AppConfig, error) {
	l := &loader{}

	if err := godotenv.Load(); err != nil {
		if err2 := godotenv.Load("../.env"); err2 != nil && !os.IsNotExist(err2) {
			l.warn("error loading .env file: %v", err2)
		}
	}

	cfg := &AppConfig{
		APIBaseURL:       strings.TrimRight(l.getEnv("API_BASE_URL", ""), "/"),
		APIToken:         l.getEnv("API_TOKEN", ""),
		APIRatePerSecond: l.getEnvAsFloat("API_RATE_PER_SECOND", 10),
		APITimeout:       l.getEnvAsDuration("API_TIMEOUT", 30*time.Second),

		LogLevel:  strings.ToLower(l.getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(l.getEnv("LOG_FORMAT", "console")),

		MaxUploadSizeBytes: l.getEnvAsInt64("MAX_UPLOAD_SIZE_BYTES", 10*1024*1024),
		AllowedUploadTypes: l.getEnvAsList("ALLOWED_UPLOAD_TYPES", []string{"application/pdf", "image/jpeg", "image/jpg", "image/png"}),

		PollInterval:    l.getEnvAsDuration("POLL_INTERVAL", 2*time.Second),
		PollMaxAttempts: l.getEnvAsInt("POLL_MAX_ATTEMPTS", 150),

		DraftTTL:    l.getEnvAsDuration("DRAFT_TTL", 168*time.Hour),
		DraftBucket: l.getEnv("DRAFT_BUCKET", ""),

		UploadBucket:    l.getEnv("UPLOAD_BUCKET", ""),
		CodesFile:       l.getEnv("CODES_FILE", ""),
		BigQueryProject: l.getEnv("BIGQUERY_PROJECT", ""),
		BigQueryDataset: l.getEnv("BIGQUERY_DATASET", ""),
		GeminiModel:     l.getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}

	if cfg.MaxUploadSizeBytes <= 0 {
		l.warn("MAX_UPLOAD_SIZE_BYTES must be positive, using default 10MB")
		cfg.MaxUploadSizeBytes = 10 * 1024 * 1024
	}
	if cfg.PollInterval <= 0 {
		l.warn("POLL_INTERVAL must be positive, using default 2s")
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollMaxAttempts < 0 {
		l.warn("POLL_MAX_ATTEMPTS cannot be negative, using default 150")
		cfg.PollMaxAttempts = 150
	}
	if cfg.LogFormat != "console" && cfg.LogFormat != "json" {
		l.warn("LOG_FORMAT %q is not console or json, using console", cfg.LogFormat)
		cfg.LogFormat = "console"
	}
	cfg.Warnings = l.warnings

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	if c.APIBaseURL != "" {
		u, err := url.Parse(c.APIBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: API_BASE_URL %q is not an absolute URL", c.APIBaseURL)
		}
	}
	if (c.BigQueryProject == "") != (c.BigQueryDataset == "") {
		return errors.New("config: BIGQUERY_PROJECT and BIGQUERY_DATASET must be set together")
	}
	return nil
}

// UseBigQueryCodes reports whether code lists come from BigQuery.
func (c *AppConfig) UseBigQueryCodes() bool {
	return c.BigQueryProject != "" && c.BigQueryDataset != ""
}

type loader struct {
	warnings []string
}

func (l *loader) warn(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}

// getEnv retrieves an environment variable or returns a fallback value.
func (l *loader) getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func (l *loader) getEnvAsInt(key string, fallback int) int {
	valueStr := l.getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		l.warn("invalid integer for %s: '%s'. Using default %d", key, valueStr, fallback)
		return fallback
	}
	return value
}

func (l *loader) getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := l.getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		l.warn("invalid integer for %s: '%s'. Using default %d", key, valueStr, fallback)
		return fallback
	}
	return value
}

func (l *loader) getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := l.getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		l.warn("invalid number for %s: '%s'. Using default %g", key, valueStr, fallback)
		return fallback
	}
	return value
}

func (l *loader) getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := l.getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		l.warn("invalid duration for %s: '%s'. Using default %s", key, valueStr, fallback)
		return fallback
	}
	return value
}

// getEnvAsList splits a comma-separated variable, dropping blank items.
func (l *loader) getEnvAsList(key string, fallback []string) []string {
	valueStr := l.getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return fallback
	}
	return items
}
