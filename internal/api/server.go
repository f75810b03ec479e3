package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/amaumene/airingbot/internal/api/handlers"
	"github.com/amaumene/airingbot/internal/api/middleware"
	"github.com/amaumene/airingbot/internal/config"
)

// Server represents the HTTP server
type Server struct {
	app    *fiber.App
	addr   string
	logger *logrus.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, stats handlers.StatsSource, reports handlers.ReportSource, gatherer prometheus.Gatherer, logger *logrus.Logger) *Server {
	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           15 * time.Second,
			WriteTimeout:          15 * time.Second,
			IdleTimeout:           60 * time.Second,
		}),
		addr:   ":" + cfg.ServerPort,
		logger: logger,
	}

	s.app.Use(middleware.Logging(logger))
	s.setupRoutes(stats, reports, gatherer)

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(stats handlers.StatsSource, reports handlers.ReportSource, gatherer prometheus.Gatherer) {
	s.app.Get("/health", handlers.NewHealthHandler(s.logger).Handle)
	s.app.Get("/status", handlers.NewStatusHandler(stats, reports, s.logger).Handle)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// Start serves until ctx is done or the listener fails
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(shutdownCtx)
}
