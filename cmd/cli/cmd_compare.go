package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"cortex-backtest/internal/backtest"
)

func compareCmd() *cobra.Command {
	var (
		datasetID  string
		strategies []string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run several strategies over one dataset, side by side",
		RunE: func(*cobra.Command, []string) error {
			type row struct {
				name string
				run  backtest.RunResult
				err  error
			}
			rows := make([]row, 0, len(strategies))
			for _, name := range strategies {
				name = strings.TrimSpace(name)
				run, err := runOne(datasetID, name, nil, limit)
				rows = append(rows, row{name: name, run: run, err: err})
			}
			sort.SliceStable(rows, func(i, j int) bool {
				if rows[i].err != nil || rows[j].err != nil {
					return rows[j].err != nil
				}
				return rows[i].run.Result.SharpeRatio > rows[j].run.Result.SharpeRatio
			})

			fmt.Printf("%-14s %-10s %-9s %-10s %-8s %-8s %-8s\n",
				"strategy", "return%", "sharpe", "maxDD%", "trades", "win%", "score")
			for _, r := range rows {
				if r.err != nil {
					fmt.Printf("%-14s error: %v\n", r.name, r.err)
					continue
				}
				res := r.run.Result
				fmt.Printf("%-14s %-10.2f %-9.3f %-10.2f %-8d %-8.1f %-8.1f\n",
					r.name, res.TotalReturnPct, res.SharpeRatio, res.MaxDrawdownPct,
					res.TotalTrades, res.WinRate, r.run.FinalScore)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetID, "dataset", "", "Dataset ID (required)")
	cmd.Flags().StringSliceVar(&strategies, "strategies",
		[]string{"buyhold", "statistical", "swing", "contrarian"}, "Strategies to compare")
	cmd.Flags().IntVar(&limit, "n", 0, "Optional: limit to first N rows (0=all)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
