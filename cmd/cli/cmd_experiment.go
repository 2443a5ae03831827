package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cortex-backtest/internal/data"
	"cortex-backtest/internal/experiments"
)

func experimentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run grid sweeps and inspect stored experiments",
	}
	cmd.AddCommand(experimentRunCmd())
	cmd.AddCommand(experimentTopCmd())
	cmd.AddCommand(experimentListCmd())
	return cmd
}

func experimentRunCmd() *cobra.Command {
	var (
		preset     string
		datasetIDs []string
		workers    int
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Expand a preset grid and persist every cell's result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids := datasetIDs
			if len(ids) == 0 {
				infos, err := data.ListDatasets(cfg.Data.Dir)
				if err != nil {
					return err
				}
				for _, ds := range infos {
					ids = append(ids, ds.ID)
				}
			}
			if len(ids) == 0 {
				return fmt.Errorf("no datasets found in %s", cfg.Data.Dir)
			}

			spec, err := experiments.Preset(preset, ids)
			if err != nil {
				return err
			}

			store, err := experiments.NewAuto(cfg.Store.Dir, cfg.Store.DSN())
			if err != nil {
				return err
			}
			defer store.Close()

			runner := &experiments.Runner{
				Data:      cfg.Data,
				Sim:       cfg.Simulation,
				Analytics: analyticsParams(),
				Store:     store,
				Workers:   workers,
			}
			results, err := runner.Run(cmd.Context(), spec)
			if err != nil {
				return err
			}

			fmt.Printf("ran %d/%d cells\n\n", len(results), spec.Cells())
			printExperiments(results)
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "standard", "Grid preset: quick, standard, full")
	cmd.Flags().StringSliceVar(&datasetIDs, "datasets", nil, "Dataset IDs (default: all in data dir)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent runs")
	return cmd
}

func experimentTopCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the stored experiments with the best Sharpe ratios",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := experiments.NewAuto(cfg.Store.Dir, cfg.Store.DSN())
			if err != nil {
				return err
			}
			defer store.Close()

			top, err := experiments.Leaderboard(cmd.Context(), store, limit)
			if err != nil {
				return err
			}
			printExperiments(top)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of entries")
	return cmd
}

func experimentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored experiments, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := experiments.NewAuto(cfg.Store.Dir, cfg.Store.DSN())
			if err != nil {
				return err
			}
			defer store.Close()

			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			printExperiments(all)
			return nil
		},
	}
}

func printExperiments(exps []experiments.Experiment) {
	if len(exps) == 0 {
		fmt.Println("no experiments")
		return
	}
	fmt.Printf("%-28s %-14s %-16s %-9s %-10s %-8s %-8s\n",
		"id", "strategy", "dataset", "sharpe", "return%", "pen", "risk")
	for _, e := range exps {
		fmt.Printf("%-28s %-14s %-16s %-9.3f %-10.2f %-8.4f %-8.2f\n",
			e.ID, e.Strategy, e.DatasetID, e.Result.SharpeRatio, e.Result.TotalReturnPct,
			e.HoldPenaltyRate, e.RiskPerTradePct)
	}
}
