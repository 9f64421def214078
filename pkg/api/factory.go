// Package api provides factory implementations for dependency injection
package api

import (
	"context"
	"log/slog"

	"github.com/ssargent/binverse/pkg/metrics"
)

// DefaultServerFactory is the default implementation of ServerFactory
type DefaultServerFactory struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewServerFactory creates a new server factory
func NewServerFactory(m *metrics.Metrics, logger *slog.Logger) ServerFactory {
	return &DefaultServerFactory{metrics: m, logger: logger}
}

// CreateServerStarter creates a server starter
func (f *DefaultServerFactory) CreateServerStarter() ServerStarter {
	return &DefaultServerStarter{metrics: f.metrics, logger: f.logger}
}

// DefaultServerStarter is the default implementation of ServerStarter
type DefaultServerStarter struct {
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// StartServer starts the API server with the given configuration
func (s *DefaultServerStarter) StartServer(ctx context.Context, store StreamStore, config ServerConfig) error {
	return NewServer(store, config, s.metrics, s.logger).ListenAndServe(ctx)
}
