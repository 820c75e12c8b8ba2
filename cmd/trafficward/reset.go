package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var resetFlags struct {
	yes bool
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the billing cycle and lift enforcement",
	Long: `Clear the accounting record and lift any active block. The next check
starts a fresh baseline from the current counter values.

Destructive: this cycle's accumulated usage is discarded. Waits up to
thirty seconds for a concurrent check to finish, then fails loudly
rather than skipping, because a missed reset must not happen silently.

Examples:
  # Scheduled monthly reset
  0 0 1 * * /usr/local/bin/trafficward reset --yes`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&resetFlags.yes, "yes", "y", false, "skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	_, _, m, err := setup()
	if err != nil {
		return err
	}

	if !resetFlags.yes {
		fmt.Print("This discards the current cycle's usage accounting. Continue? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := m.Reset(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("Accounting record cleared and enforcement lifted.")
	return nil
}
