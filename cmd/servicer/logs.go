package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var logOpts servicer.LogOptions

var logsCmd = &cobra.Command{
	Use:   "logs <name>",
	Short: "Show a service's journal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := logOpts
		opts.Journalctl = cfg.Journalctl

		lines, err := servicer.StreamLogs(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for line := range lines {
			if line.Err != nil {
				return line.Err
			}
			fmt.Fprintln(w, line.Text)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logOpts.Lines, "lines", "n", 50, "number of trailing lines to show")
	logsCmd.Flags().BoolVarP(&logOpts.Follow, "follow", "f", false, "keep printing new entries")
	rootCmd.AddCommand(logsCmd)
}
