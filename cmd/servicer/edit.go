package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var editEditor string

var editCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a unit file, or write a new one from a template",
	Long: `Edit opens the unit file in $VISUAL, $EDITOR or vi. For a name that has no
unit yet a template is opened instead and installed only if you change it.
systemd re-reads its units whenever the file changed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		editor := editEditor
		if editor == "" {
			editor = cfg.Editor
		}
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Edit(cmd.Context(), args[0], editor)
		})
	},
}

func init() {
	editCmd.Flags().StringVar(&editEditor, "editor", "", "editor command (default: $VISUAL, $EDITOR or vi)")
	rootCmd.AddCommand(editCmd)
}
