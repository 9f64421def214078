/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ssargent/binverse/pkg/config"
)

const serviceName = "binverse.service"

// unitPath is where the systemd unit is written. Tests point it elsewhere.
var unitPath = "/etc/systemd/system/" + serviceName

// runCommand runs a system command. Tests replace it.
var runCommand = func(out io.Writer, command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = out
	c.Stderr = out
	return c.Run()
}

// requireRoot is replaced in tests.
var requireRoot = func() error {
	if os.Geteuid() != 0 {
		return errors.New("this command requires root privileges")
	}
	return nil
}

func newServiceCmd() *cobra.Command {
	// serviceCmd represents the service command
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the stream server as a systemd service",
		Long: `Manage the binverse stream server as a systemd service. The unit runs
"binverse serve" with the installed config and restarts on failure.`,
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install the stream server as a systemd service",
		Long: `Install the stream server as a systemd service.

This will:
- Create the config if it does not exist
- Write the systemd unit file
- Enable and optionally start the service

Examples:
  sudo binverse service install
  sudo binverse service install --config /etc/binverse/config.yaml --data-dir /var/lib/binverse --user binverse`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoot(); err != nil {
				return err
			}
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			user, _ := cmd.Flags().GetString("user")
			binary, _ := cmd.Flags().GetString("binary")
			startNow, _ := cmd.Flags().GetBool("start")

			var cfg *config.Config
			var err error
			if config.ConfigExists(configPath) {
				cfg, err = config.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cmd.Printf("Loaded existing configuration from %s\n", configPath)
			} else {
				cfg, err = config.BootstrapConfig(configPath, dataDir)
				if err != nil {
					return err
				}
				cmd.Printf("Created new configuration at %s\n", configPath)
			}

			unit := systemdUnit(cfg, configPath, user, binary)
			if err := os.WriteFile(unitPath, []byte(unit), 0600); err != nil {
				return fmt.Errorf("failed to write systemd unit: %w", err)
			}

			out := cmd.OutOrStdout()
			if err := runCommand(out, "systemctl", "daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}
			if err := runCommand(out, "systemctl", "enable", serviceName); err != nil {
				return fmt.Errorf("failed to enable service: %w", err)
			}
			if startNow {
				if err := runCommand(out, "systemctl", "start", serviceName); err != nil {
					return fmt.Errorf("failed to start service: %w", err)
				}
			}

			cmd.Printf("Service: %s\n", serviceName)
			cmd.Printf("Config: %s\n", configPath)
			cmd.Printf("Data: %s\n", cfg.DataDir)
			cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
			return nil
		},
	}
	installCmd.Flags().String("user", "binverse", "User to run the service as")
	installCmd.Flags().String("binary", "/usr/local/bin/binverse", "Path to the binverse binary")
	installCmd.Flags().Bool("start", true, "Start the service after installation")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the systemd service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireRoot(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_ = runCommand(out, "systemctl", "stop", serviceName) // Ignore errors if already stopped
			if err := runCommand(out, "systemctl", "disable", serviceName); err != nil {
				cmd.Printf("Warning: could not disable service: %v\n", err)
			}
			if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove unit file: %w", err)
			}
			if err := runCommand(out, "systemctl", "daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}
			cmd.Printf("Service removed. Configuration and data files were kept.\n")
			return nil
		},
	}

	serviceCmd.AddCommand(installCmd, uninstallCmd)
	for _, action := range []string{"start", "stop", "restart", "status"} {
		serviceCmd.AddCommand(systemctlCmd(action))
	}
	return serviceCmd
}

func systemctlCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: fmt.Sprintf("Run systemctl %s on the service", action),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd.OutOrStdout(), "systemctl", action, serviceName)
		},
	}
}

// systemdUnit renders the unit file for the stream server
func systemdUnit(cfg *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=binverse stream server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, binary, configPath, cfg.DataDir, filepath.Dir(configPath))
}
