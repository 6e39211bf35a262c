package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var renameCmd = &cobra.Command{
	Use:   "rename <old> <new>",
	Short: "Rename a service, keeping it running and enabled as before",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Rename(cmd.Context(), args[0], args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(renameCmd)
}
