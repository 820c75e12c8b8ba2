package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"wardworks/trafficward/pkg/netstat"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one accounting and evaluation pass",
	Long: `Run one accounting and evaluation pass: sample the interface counters,
update the billing cycle record, and apply any warranted warning, block
or daily report.

Designed for unattended periodic invocation. Lock contention with a
concurrent invocation and a temporarily missing interface both exit
zero; the next scheduled run catches up.

Examples:
  # From cron, every five minutes
  */5 * * * * /usr/local/bin/trafficward check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, logger, m, err := setup()
	if err != nil {
		return err
	}

	result, err := m.RunCheck(cmd.Context())
	if err != nil {
		var nfErr *netstat.InterfaceNotFoundError
		if errors.As(err, &nfErr) {
			logger.Warn("interface not found, check skipped", "interface", nfErr.Name)
			return nil
		}
		return err
	}
	if result.Skipped {
		return nil
	}

	logger.Info("check complete",
		"billable_bytes", result.Usage.Total.Billable,
		"usage_percent", result.Outcome.UsagePercent,
		"state", result.Outcome.State.String())

	if verbose {
		fmt.Printf("state=%s usage=%d%% billable=%d bytes\n",
			result.Outcome.State, result.Outcome.UsagePercent, result.Usage.Total.Billable)
	}
	return nil
}
