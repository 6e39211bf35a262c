package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/axondata/go-servicer/internal/config"
	"github.com/axondata/go-servicer/internal/logger"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "servicer",
	Short: "Turn any executable into a systemd service",
	Long: `servicer writes a systemd unit for a script or binary, runs it as the
user who invoked sudo, and manages its lifecycle afterwards.

Every unit it creates is named <name>.servicer.service; units without that
suffix are never touched.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig()
	},
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default: /etc/servicer/servicer.yaml or ./servicer.yaml)")
	flags.String("unit-dir", "", "directory unit files are written to (default: /etc/systemd/system)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log every step to stderr")

	_ = viper.BindPFlag(config.KeyUnitDir, flags.Lookup("unit-dir"))
}

func initConfig() error {
	v := viper.GetViper()
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	if verbose {
		v.Set(config.KeyLogLevel, "debug")
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	return logger.Init(cfg.LogLevel)
}
