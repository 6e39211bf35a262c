package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var stopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Stop(cmd.Context(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
