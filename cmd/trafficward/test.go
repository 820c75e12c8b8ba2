package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a canary notification",
	Long: `Send a canary through the configured notification channel to verify
delivery works before it is needed for a real alert. With no webhook
configured the canary goes to the log.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, m, err := setup()
		if err != nil {
			return err
		}
		if err := m.SendTestNotification(cmd.Context()); err != nil {
			return fmt.Errorf("notification delivery failed: %w", err)
		}
		fmt.Println("Test notification sent.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(testCmd)
}
