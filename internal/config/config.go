package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"ainews/internal/news"
)

// Config holds runtime settings. Defaults reproduce the historical pipeline
// behavior (24h window, 1500-rune cap, 0.7 dup threshold, 15s HTTP timeout,
// ~5 article fetches per second per host).
type Config struct {
	// Feed ingestion
	FeedsConfigPath  string
	WindowHours      int // default from feeds YAML, overridable here
	FetchConcurrency int

	// Classification / extraction
	MaxTextPerItem int
	DupThreshold   float64
	HTTPTimeout    time.Duration
	ExtractRPS     float64
	CacheTTL       time.Duration

	// Storage collaborator
	DatabaseDSN   string
	StoreFilePath string

	// API server
	APISecret string
	APIPort   string

	// App
	Debug bool
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		FeedsConfigPath:  "configs/feeds.yaml",
		WindowHours:      0, // 0 = take window_hours from the feeds YAML
		FetchConcurrency: 4,
		MaxTextPerItem:   news.MaxTextLen,
		DupThreshold:     news.DupThreshold,
		HTTPTimeout:      15 * time.Second,
		ExtractRPS:       5,
		CacheTTL:         1 * time.Hour,
		APIPort:          "8080",
	}

	if v := os.Getenv("FEEDS_CONFIG_PATH"); v != "" {
		cfg.FeedsConfigPath = v
	}
	cfg.WindowHours = getEnvIntOrDefault("WINDOW_HOURS", cfg.WindowHours)
	cfg.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", cfg.FetchConcurrency)
	cfg.MaxTextPerItem = getEnvIntOrDefault("MAX_TEXT_PER_ITEM", cfg.MaxTextPerItem)

	if v := os.Getenv("DUP_THRESHOLD"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 && val <= 1 {
			cfg.DupThreshold = val
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT_SECONDS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.HTTPTimeout = time.Duration(val) * time.Second
		}
	}
	if v := os.Getenv("EXTRACT_RPS"); v != "" {
		if val, err := strconv.ParseFloat(v, 64); err == nil && val > 0 {
			cfg.ExtractRPS = val
		}
	}
	if v := os.Getenv("CACHE_TTL_HOURS"); v != "" {
		if val, err := strconv.Atoi(v); err == nil && val > 0 {
			cfg.CacheTTL = time.Duration(val) * time.Hour
		}
	}

	cfg.DatabaseDSN = os.Getenv("DATABASE_DSN")
	cfg.StoreFilePath = getEnvOrDefault("STORE_FILE_PATH", "")
	cfg.APISecret = os.Getenv("API_SECRET")
	cfg.APIPort = getEnvOrDefault("API_PORT", cfg.APIPort)

	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// Validate checks the settings the pipeline cannot run without. A missing or
// empty feed list is the only fatal condition in the system.
func (c *Config) Validate() error {
	if c.FeedsConfigPath == "" {
		return fmt.Errorf("FEEDS_CONFIG_PATH is required")
	}
	if c.MaxTextPerItem <= 0 {
		return fmt.Errorf("MAX_TEXT_PER_ITEM must be positive")
	}
	return nil
}

// ValidateAPI checks the additional settings the API server needs.
func (c *Config) ValidateAPI() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for the API server")
	}
	if c.APISecret == "" {
		return fmt.Errorf("API_SECRET is required for the API server")
	}
	return nil
}
