package main

import (
	"flag"
	"fmt"

	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/backtest"
	"cortex-backtest/internal/config"
	"cortex-backtest/internal/data"
	"cortex-backtest/internal/strategy"
)

// Demo:
// - Generate a seeded synthetic price series
// - Drive a strategy through a full episode step by step
// - Print the first few step records and the run summary
func main() {
	stratName := flag.String("strategy", "statistical", "Strategy name")
	rows := flag.Int("rows", 180, "Number of candles to generate")
	seed := flag.Int64("seed", 42, "Generator seed")
	outCSV := flag.String("out", "", "Optional path to write the step-log CSV")
	flag.Parse()

	series := data.Synthetic(data.SyntheticParams{
		Symbol: "DEMOUSD",
		Rows:   *rows,
		Seed:   *seed,
	})

	cfg := config.DefaultConfig()
	sim := cfg.Simulation

	engine, err := backtest.NewEngine(backtest.Config{
		Symbol:          series.Symbol,
		Portfolio:       sim.PortfolioParams(),
		WindowSize:      sim.WindowSize,
		RiskPerTradePct: sim.RiskPerTradePct,
		HoldPenaltyRate: sim.HoldPenaltyRate,
		Score: backtest.ScoreWeights{
			Gain:    sim.ScoreGainWeight,
			Loss:    sim.ScoreLossWeight,
			Penalty: sim.ScorePenaltyWeight,
		},
	}, series)
	if err != nil {
		panic(err)
	}

	strat, err := strategy.New(*stratName, nil)
	if err != nil {
		panic(err)
	}

	run, err := (&backtest.Runner{
		Engine:   engine,
		Strategy: strat,
		Analytics: analysis.Params{
			RiskFreeRate:   cfg.Analytics.RiskFreeRate,
			PeriodsPerYear: cfg.Analytics.TradingPeriodsPerYear,
		},
	}).Run()
	if err != nil {
		panic(err)
	}

	fmt.Printf("Generated %d candles for %s (%s .. %s)\n",
		series.Len(), series.Symbol,
		series.Start().Format("2006-01-02"), series.End().Format("2006-01-02"))
	fmt.Printf("Strategy=%s\n\n", strat.Name())

	for i := 0; i < min(12, len(run.StepLog)); i++ {
		r := run.StepLog[i]
		fmt.Printf(
			"%s px=%9.4f  action=%-4s  value=%8.2f  cash=%8.2f  qty=%10.6f  reward=%7.2f  score=%7.1f\n",
			r.Timestamp.Format("2006-01-02"),
			r.Price,
			r.Action.String(),
			r.PortfolioValue,
			r.Cash,
			r.PositionQty,
			r.Reward,
			r.Score,
		)
	}

	if *outCSV != "" {
		if err := backtest.WriteStepCSV(*outCSV, run.StepLog); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	res := run.Result
	fmt.Printf("\nDone. %d steps  final value=$%.2f (%+.2f%%)  sharpe=%.3f  score=%.1f/1000\n",
		run.Steps, res.FinalValue, res.TotalReturnPct, res.SharpeRatio, run.FinalScore)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
