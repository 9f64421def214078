/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/binverse/pkg/api"
)

func newServeCmd() *cobra.Command {
	// serveCmd represents the serve command
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the stream server",
		Long: `Start the binverse HTTP stream server.

Streams are stored under the data directory, keyed by KSUID. When an API key
is configured every /api/v1 request must carry it in X-API-Key.

Examples:
  binverse serve
  binverse serve --port=9200 --api-key=mysecretkey --data-dir=./data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := containerFrom(cmd)
			if err != nil {
				return err
			}
			cfg := c.GetConfig()
			if cmd.Flags().Changed("port") {
				cfg.Port, _ = cmd.Flags().GetInt("port")
			}
			if cmd.Flags().Changed("bind") {
				cfg.Bind, _ = cmd.Flags().GetString("bind")
			}
			if cmd.Flags().Changed("api-key") {
				cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := c.GetLogger()
			if cfg.Security.APIKey == "" {
				logger.Warn("no API key configured; stream endpoints are unauthenticated")
			}

			streams, err := c.OpenStorage()
			if err != nil {
				return err
			}
			defer streams.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			starter := c.GetServerFactory().CreateServerStarter()
			return starter.StartServer(ctx, streams, api.ServerConfig{
				Addr:        cfg.Addr(),
				APIKey:      cfg.Security.APIKey,
				MaxRevision: cfg.Stream.MaxRevision,
				MaxBodySize: int64(cfg.Stream.MaxLength),
			})
		},
	}

	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key required in X-API-Key (overrides config)")
	return serveCmd
}
