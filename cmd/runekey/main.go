//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/runekey/runekey/internal/config"
	"github.com/runekey/runekey/internal/daemon"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

// rootCmd is the daemon itself; there are no subcommands.
var rootCmd = &cobra.Command{
	Use:   "runekey",
	Short: "BLE digit pad bridged to a virtual keyboard",
	Long: `runekey exposes a BLE GATT service with a single write-only
characteristic. A phone or other BLE client writes a short digit string
over an authenticated, encrypted link and runekey types it - followed by
Enter - on a kernel virtual keyboard, exactly as if it came from physical
hardware.

Requires BlueZ on the system bus and write access to /dev/uinput.
Runs until interrupted; SIGINT/SIGTERM trigger an orderly shutdown.`,
	Version: formatVersion(version),
	Args:    cobra.NoArgs,
	RunE:    runDaemon,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Ctrl+C is a normal exit, not an error - exit silently
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", errorPrefix(), FormatUserError(err))
		os.Exit(1)
	}
}

func init() {
	// Silence Cobra's "Error:" prefix - main() prints clean errors
	rootCmd.SilenceErrors = true

	rootCmd.Flags().String("config", "", "Config file (default: ~/.config/runekey/config.yaml)")
	rootCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-format", "", "Log format (text, json)")
	rootCmd.Flags().String("device", "", "uinput device node (default: probe known locations)")

	// Add -v as a short flag for --version
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := configureLogger(cfg)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	logger.WithField("version", formatVersion(version)).Info("Starting runekey")
	return daemon.Run(cmd.Context(), logger, cfg)
}

// loadConfig reads the config file (if any) and applies flag overrides on
// top of it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.LogFormat = v
	}
	if v, _ := cmd.Flags().GetString("device"); v != "" {
		cfg.Uinput.Device = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
