// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Sheets      SheetsConfig
	Study       StudyConfig
}

// SheetsConfig controls where sheet data comes from.
type SheetsConfig struct {
	APIKey        string
	SpreadsheetID string
	BaseURL       string
	FixturePath   string // offline YAML source; overrides the API when set
	CatalogPath   string // YAML catalogue override; empty uses the embedded one
	FetchTimeout  time.Duration
	Concurrency   int
}

// StudyConfig controls in-memory study sessions.
type StudyConfig struct {
	SessionTTL    time.Duration
	SweepInterval time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/vocabook.db"),
		Sheets: SheetsConfig{
			APIKey:        getEnv("SHEETS_API_KEY", ""),
			SpreadsheetID: getEnv("SPREADSHEET_ID", ""),
			BaseURL:       getEnv("SHEETS_BASE_URL", "https://sheets.googleapis.com"),
			FixturePath:   getEnv("SHEETS_FIXTURE_PATH", ""),
			CatalogPath:   getEnv("SHEETS_CATALOG_PATH", ""),
			FetchTimeout:  getEnvDuration("SHEETS_FETCH_TIMEOUT", 10*time.Second),
			Concurrency:   getEnvInt("SHEETS_FETCH_CONCURRENCY", 4),
		},
		Study: StudyConfig{
			SessionTTL:    getEnvDuration("STUDY_SESSION_TTL", 60*time.Minute),
			SweepInterval: getEnvDuration("STUDY_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Sheets.FixturePath == "" {
		if c.Sheets.APIKey == "" {
			return fmt.Errorf("SHEETS_API_KEY is required unless SHEETS_FIXTURE_PATH is set")
		}
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("SPREADSHEET_ID is required unless SHEETS_FIXTURE_PATH is set")
		}
	}
	if c.Sheets.FetchTimeout <= 0 {
		return fmt.Errorf("SHEETS_FETCH_TIMEOUT must be > 0")
	}
	if c.Sheets.Concurrency <= 0 {
		return fmt.Errorf("SHEETS_FETCH_CONCURRENCY must be > 0")
	}
	if c.Study.SessionTTL <= 0 {
		return fmt.Errorf("STUDY_SESSION_TTL must be > 0")
	}
	if c.Study.SweepInterval <= 0 {
		return fmt.Errorf("STUDY_SWEEP_INTERVAL must be > 0")
	}
	return nil
}

// UsesFixture reports whether sheets are served from a local fixture.
func (c *Config) UsesFixture() bool {
	return c.Sheets.FixturePath != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{strings.TrimRight(c.FrontendURL, "/")}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
