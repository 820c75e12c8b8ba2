package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"wardworks/trafficward/pkg/config"
	"wardworks/trafficward/pkg/monitor"
	"wardworks/trafficward/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "trafficward",
	Short: "Monthly traffic budget enforcement for a host",
	Long: `Trafficward meters one network interface against a monthly traffic
budget. It accounts usage across reboots and counter resets, warns as
usage approaches the limit, and blocks all but an administrative
allow-list once the limit is reached. The block lifts automatically at
the next billing cycle.

Run "trafficward check" from cron for the classic setup, or
"trafficward run" for a self-scheduling daemon with metrics.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "/etc/trafficward/config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// historyPath returns the check log's database path inside the state
// directory.
func historyPath(stateDir string) string {
	return filepath.Join(stateDir, "history.db")
}

// loadConfig loads and validates the configuration file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the logger the commands share. The verbose flag
// forces debug level regardless of configuration.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	return logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	})
}

// requireRoot rejects non-root invocations of state-touching commands
// before any state is read or written.
func requireRoot(cfg *config.Config) error {
	if cfg.AllowUnprivileged {
		return nil
	}
	if os.Geteuid() != 0 {
		return fmt.Errorf("this command must run as root")
	}
	return nil
}

// setup is the common preamble of state-touching commands: load config,
// enforce the privilege requirement, build the logger and monitor.
func setup() (*config.Config, *slog.Logger, *monitor.Monitor, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := requireRoot(cfg); err != nil {
		return nil, nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := monitor.New(monitor.Config{App: cfg, Logger: logger})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, m, nil
}
