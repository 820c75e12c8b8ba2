package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"wardworks/trafficward/pkg/config"
	"wardworks/trafficward/pkg/history"
	"wardworks/trafficward/pkg/monitor"
	"wardworks/trafficward/pkg/threshold"
)

var statusFlags struct {
	format  string
	history int
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current usage and enforcement state",
	Long: `Show the current billing cycle's usage against the limit, the
enforcement state, and the next scheduled reset.

Read-only: the accounting record is not advanced. The usage shown
includes traffic since the last check.

Examples:
  trafficward status
  trafficward status --format json
  trafficward status --history 10`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFlags.format, "format", "f", "text", "output format (text, json)")
	statusCmd.Flags().IntVar(&statusFlags.history, "history", 0, "include the N most recent check log entries")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, logger, err := statusSetup()
	if err != nil {
		return err
	}

	var hist *history.Log
	if statusFlags.history > 0 {
		hist, err = history.Open(history.Config{DBPath: historyPath(cfg.StateDir)})
		if err != nil {
			logger.Warn("history unavailable", "error", err)
		} else {
			defer hist.Close()
		}
	}

	m, err := monitor.New(monitor.Config{App: cfg, Logger: logger, History: hist})
	if err != nil {
		return err
	}

	st, err := m.Status(cmd.Context(), statusFlags.history)
	if err != nil {
		return err
	}

	switch statusFlags.format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "text":
		printStatusText(st)
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want text or json)", statusFlags.format)
	}
}

// statusSetup is the lighter preamble for the read-only status command.
// No root requirement, since nothing is mutated.
func statusSetup() (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func printStatusText(st *monitor.Status) {
	fmt.Printf("Interface:   %s (%s)\n", st.Interface, st.Mode)
	fmt.Printf("Cycle:       %s\n", st.Cycle)
	fmt.Printf("Used:        %s of %s (%.1f%%)\n",
		threshold.FormatBytes(st.BillableUsed), threshold.FormatBytes(st.LimitBytes), st.UsagePercent)
	fmt.Printf("  rx %s / tx %s\n", threshold.FormatBytes(st.RxBytes), threshold.FormatBytes(st.TxBytes))
	fmt.Printf("State:       %s\n", st.State)
	if !st.LastCheck.IsZero() {
		fmt.Printf("Last check:  %s\n", st.LastCheck.Format(time.RFC1123))
	}
	fmt.Printf("Next reset:  %s\n", st.NextReset.Format("2006-01-02"))

	if len(st.Recent) > 0 {
		fmt.Println("\nRecent checks:")
		for _, e := range st.Recent {
			line := fmt.Sprintf("  %s  %5.1f%%  %s",
				e.CheckedAt.Format("2006-01-02 15:04"), e.UsagePercent, e.State)
			if e.Event != "" {
				line += "  [" + e.Event + "]"
			}
			fmt.Println(line)
		}
	}
}
