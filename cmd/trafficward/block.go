package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Manually install the traffic block",
	Long: `Manually install the firewall allow-list policy, as if the limit had
been reached. The block is recorded in the accounting state and stays
sticky across checks until the cycle rolls over, "unblock" is run, or
the record is reset.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, m, err := setup()
		if err != nil {
			return err
		}
		if err := m.Block(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Traffic block installed.")
		return nil
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Manually remove the traffic block",
	Long: `Remove the firewall allow-list policy and clear the block marker.
Safe to run when no block is installed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, _, m, err := setup()
		if err != nil {
			return err
		}
		if err := m.Unblock(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Traffic block removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
}
