package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the servicer version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		v := servicer.GetVersion()
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "servicer %s (%s, units *%s)\n", v.Version, v.InitSystem, v.UnitSuffix)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
