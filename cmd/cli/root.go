package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"cortex-backtest/internal/config"
)

var (
	flagConfig  string
	flagVerbose bool

	cfg config.Config
)

// Execute wires the CLI and runs it.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:           "cortex",
		Short:         "Backtest trading strategies against historical price series",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			cfg = config.DefaultConfig()
			if flagConfig != "" {
				loaded, err := config.Load(flagConfig)
				if err != nil {
					return err
				}
				cfg = *loaded
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to YAML config")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(backtestCmd())
	root.AddCommand(compareCmd())
	root.AddCommand(rankCmd())
	root.AddCommand(experimentCmd())
	return root.ExecuteContext(ctx)
}
