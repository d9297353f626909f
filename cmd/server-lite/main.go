// Package main provides the lightweight entry point for the vitality score
// server. This version requires no external services beyond the extraction
// provider - configuration comes from the environment and storage is a
// local SQLite file.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/api"
	"github.com/vitality-score-server/internal/config"
	"github.com/vitality-score-server/internal/domain"
	"github.com/vitality-score-server/internal/store"
	"github.com/vitality-score-server/pkg/external"
)

func main() {
	// Load lightweight configuration
	cfg := config.LoadLiteConfig()

	if err := cfg.EnsureDataDir(); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	logger := newLogger(cfg)
	logger.WithField("data_dir", cfg.DataDir).Info("Starting vitality score server (lite)")

	metricStore, err := store.NewSQLiteStore(cfg.MetricsDBPath())
	if err != nil {
		logger.WithError(err).Fatal("Failed to open metric store")
	}
	defer metricStore.Close()

	fullCfg := liteServerConfig(cfg)
	extractor := external.NewExtractionClient(fullCfg.Extraction, logger)

	server, err := api.NewServer(fullCfg, metricStore, extractor, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg *config.LiteConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// liteServerConfig maps the flat environment configuration onto the full
// config shape the server expects. Caching stays in-process only.
func liteServerConfig(cfg *config.LiteConfig) *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{
			Host:         "0.0.0.0",
			Port:         cfg.HTTPPort,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: domain.DatabaseConfig{
			Driver: "sqlite",
			Path:   cfg.MetricsDBPath(),
		},
		Extraction: domain.ExtractionConfig{
			BaseURL: cfg.ExtractionBaseURL,
			APIKey:  cfg.ExtractionAPIKey,
			Timeout: 30 * time.Second,
		},
		Cache: domain.CacheConfig{
			Enabled:        false,
			ScoreCacheSize: cfg.ScoreCacheSize,
		},
		Logging: domain.LoggingConfig{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
		},
	}
}
