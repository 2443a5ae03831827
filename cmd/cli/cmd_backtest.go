package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/backtest"
	"cortex-backtest/internal/data"
	"cortex-backtest/internal/model"
	"cortex-backtest/internal/strategy"
)

func backtestCmd() *cobra.Command {
	var (
		datasetID string
		stratName string
		outCSV    string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run one strategy over one dataset and print the summary",
		RunE: func(*cobra.Command, []string) error {
			name := stratName
			if name == "" {
				name = cfg.Strategy.Name
			}
			run, err := runOne(datasetID, name, cfg.Strategy.Params, limit)
			if err != nil {
				return err
			}

			printSummary(run)

			if outCSV != "" {
				if err := os.MkdirAll(filepath.Dir(outCSV), 0o755); err != nil {
					return err
				}
				if err := backtest.WriteStepCSV(outCSV, run.StepLog); err != nil {
					return err
				}
				fmt.Printf("\nWrote %d rows to %s\n", len(run.StepLog), outCSV)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&datasetID, "dataset", "", "Dataset ID, e.g. BTCUSDT_1d (required)")
	cmd.Flags().StringVar(&stratName, "strategy", "", "Strategy name (default from config)")
	cmd.Flags().StringVar(&outCSV, "out", "", "Optional step-log CSV path")
	cmd.Flags().IntVar(&limit, "n", 0, "Optional: limit to first N rows (0=all)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

// runOne loads a dataset and drives a full episode with one strategy.
func runOne(datasetID, stratName string, params map[string]any, limit int) (backtest.RunResult, error) {
	series, err := data.LoadDataset(cfg.Data.Dir, cfg.Data.SentimentDir, datasetID)
	if err != nil {
		return backtest.RunResult{}, err
	}
	if limit > 0 && limit < series.Len() {
		series = series.Slice(0, limit)
	}

	engine, err := newEngine(series)
	if err != nil {
		return backtest.RunResult{}, err
	}
	strat, err := strategy.New(stratName, params)
	if err != nil {
		return backtest.RunResult{}, err
	}
	return (&backtest.Runner{
		Engine:    engine,
		Strategy:  strat,
		Analytics: analyticsParams(),
		LogEvery:  100,
	}).Run()
}

func newEngine(series model.Series) (*backtest.Engine, error) {
	s := cfg.Simulation
	return backtest.NewEngine(backtest.Config{
		Symbol:          series.Symbol,
		Portfolio:       s.PortfolioParams(),
		WindowSize:      s.WindowSize,
		RiskPerTradePct: s.RiskPerTradePct,
		HoldPenaltyRate: s.HoldPenaltyRate,
		Score: backtest.ScoreWeights{
			Gain:    s.ScoreGainWeight,
			Loss:    s.ScoreLossWeight,
			Penalty: s.ScorePenaltyWeight,
		},
	}, series)
}

func analyticsParams() analysis.Params {
	return analysis.Params{
		RiskFreeRate:   cfg.Analytics.RiskFreeRate,
		PeriodsPerYear: cfg.Analytics.TradingPeriodsPerYear,
	}
}

func printSummary(run backtest.RunResult) {
	r := run.Result
	fmt.Printf("%s on %s  (%s .. %s)\n", r.StrategyName, r.Symbol, r.StartDate, r.EndDate)
	fmt.Printf("  capital      $%.2f -> $%.2f  (%+.2f%%)\n", r.InitialCapital, r.FinalValue, r.TotalReturnPct)
	fmt.Printf("  sharpe       %.3f\n", r.SharpeRatio)
	fmt.Printf("  max drawdown %.2f%% over %d steps\n", r.MaxDrawdownPct, r.MaxDrawdownDuration)
	fmt.Printf("  trades       %d (%.1f%% wins, profit factor %s)\n",
		r.TotalTrades, r.WinRate, fmtProfitFactor(r.ProfitFactor))
	fmt.Printf("  score        %.1f / 1000  (hold penalties $%.2f)\n", run.FinalScore, run.TotalHoldPenalty)
	fmt.Printf("  steps        %d in %s\n", run.Steps, run.Elapsed.Round(time.Millisecond))
}

func fmtProfitFactor(pf float64) string {
	if math.IsInf(pf, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", pf)
}
