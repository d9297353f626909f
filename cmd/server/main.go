package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/api"
	"github.com/vitality-score-server/internal/config"
	"github.com/vitality-score-server/internal/domain"
	"github.com/vitality-score-server/internal/store"
	"github.com/vitality-score-server/pkg/external"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	metricStore, err := newStore(configManager)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open metric store")
	}
	defer metricStore.Close()

	extractor := external.NewExtractionClient(cfg.Extraction, logger)

	server, err := api.NewServer(cfg, metricStore, extractor, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	if cfg.Cache.Enabled {
		cache, err := external.NewCacheClient(cfg.Cache)
		if err != nil {
			logger.WithError(err).Fatal("Failed to connect to cache")
		}
		defer cache.Close()
		server.UseRemoteCache(cache, cache)
		logger.Info("Remote cache enabled")
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Server.Host,
		"port":   cfg.Server.Port,
		"driver": cfg.Database.Driver,
	}).Info("Starting vitality score server")

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

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func newStore(manager *config.Manager) (domain.MetricStore, error) {
	cfg := manager.GetConfig()
	switch cfg.Database.Driver {
	case "postgres":
		return store.NewPostgresStoreFromURL(manager.GetDatabaseConnectionString())
	default:
		return store.NewSQLiteStore(cfg.Database.Path)
	}
}
