// Package api serves binverse streams over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ssargent/binverse/pkg/binverse"
	"github.com/ssargent/binverse/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// Server holds the API server state
type Server struct {
	store   StreamStore
	config  ServerConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServer creates a new API server. metrics and logger may be nil.
func NewServer(store StreamStore, config ServerConfig, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = binverse.DefaultMaxLength
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: m,
		logger:  logger,
	}
}

// Routes builds the router with all routes configured
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{RevisionHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.metrics.Middleware)

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(apiKeyMiddleware(s.config.APIKey, s.metrics))
		}

		r.Get("/health", s.handleHealth)

		r.Get("/streams", s.handleList)
		r.Post("/streams", s.handleCreate)
		r.Get("/streams/{id}", s.handleGet)
		r.Put("/streams/{id}", s.handleUpdate)
		r.Delete("/streams/{id}", s.handleDelete)
		r.Get("/streams/{id}/info", s.handleInfo)
	})

	return r
}

// ListenAndServe serves on config.Addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting binverse stream server", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down stream server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
