package main

import (
	"github.com/spf13/cobra"

	"github.com/axondata/go-servicer"
)

var createReq servicer.CreateRequest

var createCmd = &cobra.Command{
	Use:   "create <file> [-- args...]",
	Short: "Create a service from an executable or script",
	Long: `Create writes <name>.servicer.service for the given file. The service runs
as the user who invoked sudo, in the file's directory. Scripts ending in .js
or .py are run with node or python3 from that user's PATH; files without an
extension are executed directly.`,
	Example: `  sudo servicer create ./server.js --start --enable
  sudo servicer create ./worker.py --name jobs --env "QUEUE=high DEBUG=1" -- --threads 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := createReq
		req.Path = args[0]
		req.Args = args[1:]
		return mutate(cmd.Context(), cmd.OutOrStdout(), func(o *servicer.Orchestrator) (*servicer.Outcome, error) {
			return o.Create(cmd.Context(), req)
		})
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVarP(&createReq.Name, "name", "n", "", "service name (default: the file name)")
	f.StringVarP(&createReq.Interpreter, "interpreter", "i", "", "interpreter binary, looked up on your PATH")
	f.StringVarP(&createReq.Environment, "env", "e", "", `environment as "KEY=VALUE KEY2=VALUE2"`)
	f.BoolVarP(&createReq.Restart, "auto-restart", "r", false, "restart the service whenever it exits")
	f.BoolVar(&createReq.Overwrite, "overwrite", false, "replace an existing unit file")
	f.BoolVar(&createReq.Start, "start", false, "start the service after creating it")
	f.BoolVar(&createReq.Enable, "enable", false, "start the service on boot")
	rootCmd.AddCommand(createCmd)
}
