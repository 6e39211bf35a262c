package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var startEnable bool

var startCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start a service unless it is already running",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Start(cmd.Context(), args[0], startEnable)
		})
	},
}

func init() {
	startCmd.Flags().BoolVar(&startEnable, "enable", false, "also start the service on boot")
	rootCmd.AddCommand(startCmd)
}
