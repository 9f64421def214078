// Package di provides dependency injection container
package di

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/binverse/pkg/api" //nolint:depguard
	"github.com/ssargent/binverse/pkg/config"
	"github.com/ssargent/binverse/pkg/metrics"
	"github.com/ssargent/binverse/pkg/storage"
	"github.com/ssargent/binverse/pkg/store"
)

// StorageOpener opens the document store under a data directory
type StorageOpener func(dataDir string, opts storage.Options) (*storage.DefaultStorage, error)

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	serverFactory api.ServerFactory
	openStorage   StorageOpener
}

// NewContainer creates a new dependency injection container. Log output
// goes to logOutput, or stderr when it is nil.
func NewContainer(cfg *config.Config, logOutput io.Writer) *Container {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logOutput == nil {
		logOutput = os.Stderr
	}
	logger := cfg.NewLogger(logOutput)
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	return &Container{
		config:        cfg,
		logger:        logger,
		registry:      registry,
		metrics:       m,
		serverFactory: api.NewServerFactory(m, logger),
		openStorage: func(dataDir string, opts storage.Options) (*storage.DefaultStorage, error) {
			return storage.Open(filepath.Join(dataDir, "streams"), opts)
		},
	}
}

// GetConfig returns the active configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the shared logger
func (c *Container) GetLogger() *slog.Logger {
	return c.logger
}

// GetMetrics returns the shared metrics
func (c *Container) GetMetrics() *metrics.Metrics {
	return c.metrics
}

// GetRegistry returns the registry the metrics are registered with
func (c *Container) GetRegistry() *prometheus.Registry {
	return c.registry
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// OpenStorage opens the document store under the configured data directory
func (c *Container) OpenStorage() (*storage.DefaultStorage, error) {
	return c.openStorage(c.config.DataDir, storage.Options{
		Logger:  c.logger,
		Metrics: c.metrics,
	})
}

// OpenLog opens the stream log at path with the configured log settings
func (c *Container) OpenLog(path string) (*store.Log, error) {
	return store.OpenLog(path, store.LogOptions{
		FsyncInterval: c.config.Log.FsyncInterval,
		BufferSize:    c.config.Log.BufferSize,
		MaxFrameSize:  c.config.Log.MaxFrameSize,
		Logger:        c.logger,
		Metrics:       c.metrics,
	})
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}

// SetStorageOpener allows overriding how storage is opened (for testing)
func (c *Container) SetStorageOpener(opener StorageOpener) {
	c.openStorage = opener
}
