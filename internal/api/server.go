// Package api exposes the scoring engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/vitality-score-server/internal/domain"
	"github.com/vitality-score-server/internal/service"
)

// Server represents the HTTP server. It wires the pure scoring services to
// the metric store; handlers fetch raw records, invoke the engine, and
// return derived values without persisting them.
type Server struct {
	config    *domain.Config
	store     domain.MetricStore
	extractor domain.ExtractionProvider

	classifier   *service.ClassifierService
	correlations *service.CorrelationRuleEngine
	vitality     *service.VitalityService
	nutrition    *service.NutritionService
	retention    *service.RetentionService

	// scoreCache holds recently computed day scores keyed by user and
	// date. Entries are evicted on any metric or log write for the user's
	// day; raw records always win over the snapshot.
	scoreCache *lru.Cache[string, *domain.VitalityScore]

	// remoteScores and extractionCache are optional shared caches for
	// multi-instance deployments. Both are nil when caching is disabled.
	remoteScores    domain.ScoreCache
	extractionCache domain.ExtractionCache

	logger *logrus.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(config *domain.Config, store domain.MetricStore, extractor domain.ExtractionProvider, logger *logrus.Logger) (*Server, error) {
	// Set Gin mode based on environment
	if config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	cacheSize := config.Cache.ScoreCacheSize
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	scoreCache, err := lru.New[string, *domain.VitalityScore](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create score cache: %w", err)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())

	server := &Server{
		config:       config,
		store:        store,
		extractor:    extractor,
		classifier:   service.NewClassifierService(logger),
		correlations: service.NewCorrelationRuleEngine(logger),
		vitality:     service.NewVitalityService(logger),
		nutrition:    service.NewNutritionService(logger),
		retention:    service.NewRetentionService(logger),
		scoreCache:   scoreCache,
		logger:       logger,
		router:       router,
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.logger.WithField("addr", addr).Info("HTTP server started")

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// UseRemoteCache attaches a shared cache for day scores and extraction
// results. Without it the server relies on its in-process LRU only.
func (s *Server) UseRemoteCache(scores domain.ScoreCache, extractions domain.ExtractionCache) {
	s.remoteScores = scores
	s.extractionCache = extractions
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/metrics", s.handleUpsertMetric)
		v1.POST("/logs", s.handleUpsertLog)
		v1.GET("/vitality/:userID", s.handleVitality)
		v1.GET("/wellness/:userID", s.handleWellness)
		v1.GET("/insights/:userID", s.handleInsights)
		v1.POST("/reports", s.handleUploadReport)
		v1.POST("/readings/:id/verify", s.handleVerifyReading)
		v1.POST("/nutrition", s.handleNutrition)
		v1.POST("/retention/offer", s.handleRetentionOffer)
		v1.GET("/export/:userID", s.handleExport)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"version":   "1.0.0",
	})
}

// corsMiddleware adds CORS headers to responses
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-API-Key")
		c.Header("Access-Control-Expose-Headers", "Content-Length")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware adds a unique request ID to each request
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// generateRequestID generates a simple request ID
func generateRequestID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
