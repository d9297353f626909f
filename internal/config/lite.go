// Package config provides configuration management for the vitality server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for data files

	// Cache settings
	ScoreCacheSize int           // Maximum entries in the day-score cache
	CacheTTL       time.Duration // Default cache TTL

	// API settings
	ExtractionBaseURL string // Base URL of the lab extraction provider
	ExtractionAPIKey  string // Optional: key for the lab extraction provider

	// Server settings
	HTTPPort int // HTTP port

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".vitality-score")

	return &LiteConfig{
		DataDir:           dataDir,
		ScoreCacheSize:    1024,
		CacheTTL:          24 * time.Hour,
		ExtractionBaseURL: "https://api.labextract.io/v1/",
		HTTPPort:          8080,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directory
	if v := os.Getenv("VITALITY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// Cache settings
	if v := os.Getenv("VITALITY_SCORE_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ScoreCacheSize = n
		}
	}
	if v := os.Getenv("VITALITY_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Extraction provider
	if v := os.Getenv("EXTRACTION_BASE_URL"); v != "" {
		cfg.ExtractionBaseURL = v
	}
	cfg.ExtractionAPIKey = os.Getenv("EXTRACTION_API_KEY")

	// Server
	if v := os.Getenv("VITALITY_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Logging
	if v := os.Getenv("VITALITY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("VITALITY_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// MetricsDBPath returns the path to the metrics SQLite database.
func (c *LiteConfig) MetricsDBPath() string {
	return filepath.Join(c.DataDir, "vitality.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
