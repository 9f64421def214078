/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/binverse/pkg/binverse"
)

// Config represents the binverse service and tooling configuration
type Config struct {
	DataDir  string   `yaml:"data_dir"`
	Port     int      `yaml:"port"`
	Bind     string   `yaml:"bind"`
	Stream   Stream   `yaml:"stream"`
	Log      Log      `yaml:"log"`
	Security Security `yaml:"security"`
	Logging  Logging  `yaml:"logging"`
}

// Stream contains limits applied when reading and writing streams
type Stream struct {
	// Revision is the revision new streams are written at.
	Revision uint32 `yaml:"revision"`
	// MaxRevision rejects streams newer than this; unset accepts any.
	MaxRevision *uint32 `yaml:"max_revision,omitempty"`
	// MaxLength caps every length prefix and element count.
	MaxLength uint64 `yaml:"max_length"`
}

// Log contains stream log configuration
type Log struct {
	FsyncInterval time.Duration `yaml:"fsync_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	MaxFrameSize  uint32        `yaml:"max_frame_size"`
}

// Security contains security-related configuration
type Security struct {
	APIKey string `yaml:"api_key"`
}

// Logging contains logging configuration
type Logging struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Port:    8080,
		Bind:    "127.0.0.1",
		Stream: Stream{
			MaxLength: binverse.DefaultMaxLength,
		},
		Log: Log{
			FsyncInterval: 0,
			BufferSize:    64 * 1024,
			MaxFrameSize:  binverse.DefaultMaxLength,
		},
		Security: Security{
			APIKey: "",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig creates a new configuration with a generated API key and
// saves it
func BootstrapConfig(configPath string, dataDir string) (*Config, error) {
	config := DefaultConfig()
	if dataDir != "" {
		config.DataDir = dataDir
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Security.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./binverse.yaml"
	}

	// For Linux/macOS, use ~/.config/binverse/config.yaml
	return filepath.Join(homeDir, ".config", "binverse", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir must be set"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.Bind != "" && c.Bind != "localhost" && net.ParseIP(c.Bind) == nil {
		errs = append(errs, fmt.Errorf("bind %q is not an IP address", c.Bind))
	}
	if c.Stream.MaxLength == 0 {
		errs = append(errs, errors.New("stream.max_length must be positive"))
	}
	if c.Stream.MaxRevision != nil && c.Stream.Revision > *c.Stream.MaxRevision {
		errs = append(errs, fmt.Errorf("stream.revision %d is above stream.max_revision %d",
			c.Stream.Revision, *c.Stream.MaxRevision))
	}
	if c.Log.BufferSize < 0 {
		errs = append(errs, errors.New("log.buffer_size must not be negative"))
	}
	if c.Log.FsyncInterval < 0 {
		errs = append(errs, errors.New("log.fsync_interval must not be negative"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// DeserializerOptions returns the read limits configured under stream.
func (c *Config) DeserializerOptions() []binverse.Option {
	opts := []binverse.Option{binverse.WithMaxLength(c.Stream.MaxLength)}
	if c.Stream.MaxRevision != nil {
		opts = append(opts, binverse.WithMaxRevision(*c.Stream.MaxRevision))
	}
	return opts
}

// ParseLevel maps a logging.level value to a slog level. Empty means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown logging level %q", level)
}

// NewLogger builds the text logger every component shares, at the
// configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Logging.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
