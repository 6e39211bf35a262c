package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var reloadCmd = &cobra.Command{
	Use:   "reload <name>",
	Short: "Ask a service to reload its configuration",
	Long: `Reload forwards a reload request to the service's ExecReload= command.
With the default reload_policy (failed-only) only failed services are
reloaded; set reload_policy: unless-reloading to reload running ones.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Reload(cmd.Context(), args[0])
		})
	},
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}
