/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/binverse/pkg/config"
)

func newInitCmd() *cobra.Command {
	// initCmd represents the init command
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a config file with a generated API key",
		Long: `Create a binverse config file for local development.

This command will:
- Write a default config to the --config path
- Generate an API key for the stream server
- Create the data directory

Examples:
  binverse init
  binverse init --config=./binverse.yaml --data-dir=./data --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			force, _ := cmd.Flags().GetBool("force")

			if config.ConfigExists(configPath) && !force {
				cmd.Printf("Config already exists at %s. Use --force to overwrite.\n", configPath)
				return nil
			}

			cfg, err := config.BootstrapConfig(configPath, dataDir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			cmd.Printf("Config written to %s\n", configPath)
			cmd.Printf("Data directory: %s\n", cfg.DataDir)
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			cmd.Printf("\nYou can now start the server with:\n")
			cmd.Printf("  binverse serve --config=%s\n", configPath)
			return nil
		},
	}

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	return initCmd
}
