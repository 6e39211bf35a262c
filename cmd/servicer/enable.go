package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var enableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Start a service on boot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Enable(cmd.Context(), args[0])
		})
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Stop starting a service on boot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Disable(cmd.Context(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(enableCmd, disableCmd)
}
