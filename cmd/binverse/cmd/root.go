/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/binverse/pkg/config"
	"github.com/ssargent/binverse/pkg/di"
)

type containerKey struct{}

// newContainer builds the dependency container once the config is loaded.
// Tests replace it to inject fakes.
var newContainer = func(cfg *config.Config, cmd *cobra.Command) *di.Container {
	return di.NewContainer(cfg, cmd.ErrOrStderr())
}

// NewRootCmd builds the binverse command tree
func NewRootCmd() *cobra.Command {
	// rootCmd represents the base command when called without any subcommands
	rootCmd := &cobra.Command{
		Use:   "binverse",
		Short: "binverse - versioned binary serialization",
		Long: `binverse reads, writes and stores compact binary streams whose layout
is selected by a revision number carried in a 4-byte header.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Store in command context
			cmd.SetContext(context.WithValue(cmd.Context(), containerKey{}, newContainer(cfg, cmd)))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", config.GetDefaultConfigPath(), "Path to the config file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (overrides config)")

	rootCmd.AddCommand(
		newInitCmd(),
		newInspectCmd(),
		newVarintCmd(),
		newLogCmd(),
		newServeCmd(),
		newServiceCmd(),
	)
	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file when it exists, falling back to
// defaults, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func containerFrom(cmd *cobra.Command) (*di.Container, error) {
	c, ok := cmd.Context().Value(containerKey{}).(*di.Container)
	if !ok {
		return nil, errors.New("dependency container not initialized")
	}
	return c, nil
}
