package backtest

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/metrics"
	"cortex-backtest/internal/strategy"
)

// RunResult bundles everything one completed run produces: the summary,
// the raw equity curve and step log for export, and the score totals.
type RunResult struct {
	Result analysis.BacktestResult `json:"result"`

	EquityCurve []float64    `json:"equity_curve"`
	StepLog     []StepRecord `json:"step_log"`
	TradePnLs   []float64    `json:"trade_pnls"`

	FinalScore       float64       `json:"final_score"`
	TotalHoldPenalty float64       `json:"total_hold_penalty"`
	Steps            int           `json:"steps"`
	Elapsed          time.Duration `json:"-"`
}

// Runner drives an engine episode to the end with one strategy and
// turns the outcome into a BacktestResult.
type Runner struct {
	Engine   *Engine
	Strategy strategy.Strategy

	// Analytics defaults to analysis.DefaultParams().
	Analytics analysis.Params

	// LogEvery emits a progress line every N steps. 0 disables.
	LogEvery int

	// OnStep receives each step record as it is produced. Used by the
	// streaming API endpoint; nil is fine.
	OnStep func(rec StepRecord, res StepResult)

	// Metrics defaults to metrics.Default.
	Metrics *metrics.Registry
}

func (r *Runner) Run() (RunResult, error) {
	if r.Engine == nil || r.Strategy == nil {
		return RunResult{}, fmt.Errorf("runner needs an engine and a strategy")
	}
	m := r.Metrics
	if m == nil {
		m = metrics.Default
	}
	p := r.Analytics
	if p == (analysis.Params{}) {
		p = analysis.DefaultParams()
	}

	started := time.Now()
	name := r.Strategy.Name()

	r.Strategy.Reset()
	if primed, ok := r.Strategy.(strategy.Primed); ok {
		if err := primed.Prime(r.Engine.RunContext()); err != nil {
			m.BacktestsTotal.WithLabelValues(name, "error").Inc()
			return RunResult{}, fmt.Errorf("priming strategy %s: %w", name, err)
		}
	}

	obs := r.Engine.Reset()
	steps := 0
	for !r.Engine.Done() {
		action := r.Strategy.Decide(obs)
		res, err := r.Engine.Step(action)
		if err != nil {
			m.BacktestsTotal.WithLabelValues(name, "error").Inc()
			return RunResult{}, fmt.Errorf("step %d: %w", steps, err)
		}
		steps++
		m.StepsTotal.Inc()
		if res.Fill != nil {
			m.TradesTotal.WithLabelValues(string(res.Fill.Side)).Inc()
		}
		if r.OnStep != nil {
			r.OnStep(r.Engine.LastStep(), res)
		}
		if r.LogEvery > 0 && steps%r.LogEvery == 0 {
			log.Debug().
				Str("strategy", name).
				Int("step", steps).
				Float64("value", res.PortfolioValue).
				Float64("score", res.Score).
				Msg("backtest progress")
		}
		obs = res.Observation
	}

	series := r.Engine.Series()
	cfg := r.Engine.Config()
	curve := r.Engine.EquityCurve()

	// Without a single closed round trip the trade stats would be empty
	// even though the run has an outcome; fall back to the run's overall
	// P&L as one synthetic trade.
	pnls := r.Engine.TradePnLs()
	if len(pnls) == 0 && len(curve) > 0 {
		pnls = []float64{curve[len(curve)-1] - cfg.Portfolio.InitialCapital}
	}

	result := analysis.Build(
		name,
		cfg.Symbol,
		series.Start().Format("2006-01-02"),
		series.End().Format("2006-01-02"),
		cfg.Portfolio.InitialCapital,
		curve,
		pnls,
		p,
	)

	elapsed := time.Since(started)
	m.BacktestsTotal.WithLabelValues(name, "ok").Inc()
	m.BacktestDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	return RunResult{
		Result:           result,
		EquityCurve:      curve,
		StepLog:          r.Engine.StepLog(),
		TradePnLs:        r.Engine.TradePnLs(),
		FinalScore:       r.Engine.Score(),
		TotalHoldPenalty: r.Engine.TotalHoldPenalty(),
		Steps:            steps,
		Elapsed:          elapsed,
	}, nil
}
