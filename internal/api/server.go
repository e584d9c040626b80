// Package api exposes the curation service over a JSON REST API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/middleware"
	"github.com/variant-curation-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck probes an optional dependency. Failures are reported by /health without
// failing the probe.
type HealthCheck func(ctx context.Context) error

// Server represents the HTTP server
type Server struct {
	config   domain.ServerConfig
	service  *service.CurationService
	logger   *logrus.Logger
	gatherer prometheus.Gatherer
	router   *gin.Engine
	server   *http.Server
	checks   map[string]HealthCheck
}

// NewServer creates a new HTTP server instance. Metrics are served from gatherer.
func NewServer(configManager domain.ConfigManager, svc *service.CurationService, gatherer prometheus.Gatherer, logger *logrus.Logger) *Server {
	if configManager.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	config := *configManager.GetServerConfig()
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.AccessLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(middleware.RequestTimeout(config.RequestTimeout))

	server := &Server{
		config:   config,
		service:  svc,
		logger:   logger,
		gatherer: gatherer,
		router:   router,
		checks:   make(map[string]HealthCheck),
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// AddHealthCheck registers a named dependency check reported by /health.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/variants", s.handleCreateVariant)
		v1.GET("/variants", s.handleFindVariant)
		v1.GET("/variants/:key", s.handleGetVariant)
		v1.POST("/variants/:key/curations", s.handleAddCuration)
		v1.GET("/variants/:key/curations", s.handleQueryCurations)
		v1.POST("/variants/:key/evidences", s.handleAddEvidence)
		v1.GET("/variants/:key/evidences", s.handleQueryEvidence)
		v1.POST("/variants/:key/annotation", s.handleReannotate)
		v1.GET("/variants/:key/submissions", s.handleListSubmissions)
		v1.GET("/submitters/:submitter/submissions", s.handleListSubmitterSubmissions)
	}
}

// handleHealth reports liveness and store reachability
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"store":     "ok",
	}
	if err := s.service.Ping(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["store"] = err.Error()
	}
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			body["status"] = "degraded"
			body[name] = err.Error()
			continue
		}
		body[name] = "ok"
	}
	c.JSON(status, body)
}
