package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <name>",
	Aliases: []string{"rm"},
	Short:   "Stop, disable and remove a service",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Delete(cmd.Context(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
