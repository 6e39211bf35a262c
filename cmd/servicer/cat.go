package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
	"github.com/axondata/go-servicer/internal/logger"
	"github.com/axondata/go-servicer/internal/ui"
)

var catCmd = &cobra.Command{
	Use:   "cat <name>",
	Short: "Print a service's unit file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := offlineOrchestrator()
		if err != nil {
			return err
		}
		path, data, err := orch.UnitFile(args[0])
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintln(w, ui.Hint("# "+path))
		_, err = w.Write(data)
		return err
	},
}

var pathsCmd = &cobra.Command{
	Use:   "paths <name>",
	Short: "Show where a service lives on disk and on D-Bus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, err := offlineOrchestrator()
		if err != nil {
			return err
		}
		paths, err := orch.Paths(args[0])
		if err != nil {
			return err
		}
		_, full, _ := servicer.ResolveName(args[0])
		ui.RenderPaths(cmd.OutOrStdout(), full, paths)
		return nil
	},
}

// offlineOrchestrator serves commands that only read unit files
func offlineOrchestrator() (*servicer.Orchestrator, error) {
	opts, err := options(logger.ComponentCLI)
	if err != nil {
		return nil, err
	}
	return servicer.NewOrchestrator(nil, opts...), nil
}

func init() {
	rootCmd.AddCommand(catCmd, pathsCmd)
}
