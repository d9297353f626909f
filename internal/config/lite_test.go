package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1024, cfg.ScoreCacheSize)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	// Clear relevant env vars
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1024, cfg.ScoreCacheSize)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	// Set environment variables
	os.Setenv("VITALITY_DATA_DIR", "/tmp/test-vitality")
	os.Setenv("VITALITY_SCORE_CACHE_SIZE", "500")
	os.Setenv("VITALITY_CACHE_TTL", "12h")
	os.Setenv("VITALITY_HTTP_PORT", "9090")
	os.Setenv("VITALITY_LOG_LEVEL", "debug")
	os.Setenv("EXTRACTION_BASE_URL", "https://extract.test/v2/")
	os.Setenv("EXTRACTION_API_KEY", "test-key")

	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-vitality", cfg.DataDir)
	assert.Equal(t, 500, cfg.ScoreCacheSize)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://extract.test/v2/", cfg.ExtractionBaseURL)
	assert.Equal(t, "test-key", cfg.ExtractionAPIKey)
}

func TestLoadLiteConfig_InvalidNumbersIgnored(t *testing.T) {
	clearEnvVars(t)

	os.Setenv("VITALITY_SCORE_CACHE_SIZE", "not-a-number")
	os.Setenv("VITALITY_HTTP_PORT", "-1")
	defer clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.Equal(t, 1024, cfg.ScoreCacheSize)
	assert.Equal(t, 8080, cfg.HTTPPort)
}

func TestLiteConfig_MetricsDBPath(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.vitality-score"}

	path := cfg.MetricsDBPath()

	assert.Equal(t, "/home/user/.vitality-score/vitality.db", path)
}

func TestLiteConfig_ExportDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.vitality-score"}

	path := cfg.ExportDir()

	assert.Equal(t, "/home/user/.vitality-score/exports", path)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cfg := &LiteConfig{DataDir: filepath.Join(tmpDir, "vitality")}

	err = cfg.EnsureDataDir()
	require.NoError(t, err)

	// Verify directories exist
	_, err = os.Stat(cfg.DataDir)
	assert.NoError(t, err)

	_, err = os.Stat(cfg.ExportDir())
	assert.NoError(t, err)
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	vars := []string{
		"VITALITY_DATA_DIR",
		"VITALITY_SCORE_CACHE_SIZE",
		"VITALITY_CACHE_TTL",
		"VITALITY_HTTP_PORT",
		"VITALITY_LOG_LEVEL",
		"VITALITY_LOG_FORMAT",
		"EXTRACTION_BASE_URL",
		"EXTRACTION_API_KEY",
	}
	for _, v := range vars {
		os.Unsetenv(v)
	}
}
