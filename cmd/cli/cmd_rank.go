package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/data"
	"cortex-backtest/internal/model"
)

func rankCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank every dataset by strategy-free profit potential",
		RunE: func(*cobra.Command, []string) error {
			infos, err := data.ListDatasets(cfg.Data.Dir)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				return fmt.Errorf("no datasets found in %s", cfg.Data.Dir)
			}

			byID := make(map[string]model.Series, len(infos))
			symbolByID := make(map[string]string, len(infos))
			for _, ds := range infos {
				series, err := data.LoadDataset(cfg.Data.Dir, cfg.Data.SentimentDir, ds.ID)
				if err != nil {
					fmt.Printf("skipping %s: %v\n", ds.ID, err)
					continue
				}
				symbolByID[ds.ID] = series.Symbol
				series.Symbol = ds.ID
				byID[ds.ID] = series
			}

			ranked := analysis.RankByOracleProfit(byID)
			if limit > 0 && limit < len(ranked) {
				ranked = ranked[:limit]
			}

			fmt.Printf("%-4s %-18s %-10s %-6s %-12s %-12s\n",
				"#", "dataset", "symbol", "rows", "oracle$", "p95-p05")
			for i, r := range ranked {
				fmt.Printf("%-4d %-18s %-10s %-6d %-12.2f %-12.5f\n",
					i+1, r.Symbol, symbolByID[r.Symbol], r.Count, r.OracleProfit, r.SpreadP95P05)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Show only the top N datasets (0=all)")
	return cmd
}
