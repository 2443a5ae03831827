package experiments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/backtest"
	"cortex-backtest/internal/config"
	"cortex-backtest/internal/data"
	"cortex-backtest/internal/model"
	"cortex-backtest/internal/strategy"
)

// GridSpec is the cartesian product of settings to sweep. Empty axes
// fall back to the base config's value.
type GridSpec struct {
	Strategies       []string  `json:"strategies"`
	DatasetIDs       []string  `json:"dataset_ids"`
	HoldPenaltyRates []float64 `json:"hold_penalty_rates"`
	RiskPerTradePcts []float64 `json:"risk_per_trade_pcts"`
}

// Cells is the number of runs the spec expands to.
func (g GridSpec) Cells() int {
	n := len(g.Strategies) * len(g.DatasetIDs)
	if len(g.HoldPenaltyRates) > 0 {
		n *= len(g.HoldPenaltyRates)
	}
	if len(g.RiskPerTradePcts) > 0 {
		n *= len(g.RiskPerTradePcts)
	}
	return n
}

// Preset returns a named grid over the given datasets. The axes mirror
// the sweeps used during strategy tuning: quick for smoke runs,
// standard for day-to-day comparisons, full for overnight sweeps.
func Preset(name string, datasetIDs []string) (GridSpec, error) {
	switch name {
	case "quick":
		return GridSpec{
			Strategies:       []string{"buyhold", "statistical"},
			DatasetIDs:       datasetIDs,
			HoldPenaltyRates: []float64{0.001},
			RiskPerTradePcts: []float64{0.1},
		}, nil
	case "standard":
		return GridSpec{
			Strategies:       []string{"buyhold", "statistical", "swing", "contrarian"},
			DatasetIDs:       datasetIDs,
			HoldPenaltyRates: []float64{0, 0.001},
			RiskPerTradePcts: []float64{0.1, 0.25},
		}, nil
	case "full":
		return GridSpec{
			Strategies:       []string{"buyhold", "statistical", "swing", "contrarian", "oracle"},
			DatasetIDs:       datasetIDs,
			HoldPenaltyRates: []float64{0, 0.001, 0.005},
			RiskPerTradePcts: []float64{0.05, 0.1, 0.25, 0.5},
		}, nil
	default:
		return GridSpec{}, fmt.Errorf("unknown preset %q (known: quick, standard, full)", name)
	}
}

// Runner sweeps a grid of backtests and persists every outcome.
type Runner struct {
	Data      config.DataConfig
	Sim       config.SimulationConfig
	Analytics analysis.Params
	Store     Store

	// Workers bounds concurrent runs; engines share nothing, so each
	// worker owns its runs end to end. <= 1 means sequential.
	Workers int
}

type job struct {
	strategy    string
	datasetID   string
	holdPenalty float64
	riskPct     float64
}

// Run expands the grid and executes every cell. Individual failures are
// logged and skipped; the sweep only fails when nothing could run or
// the context was cancelled.
func (r *Runner) Run(ctx context.Context, spec GridSpec) ([]Experiment, error) {
	if len(spec.Strategies) == 0 || len(spec.DatasetIDs) == 0 {
		return nil, fmt.Errorf("grid needs at least one strategy and one dataset")
	}
	penalties := spec.HoldPenaltyRates
	if len(penalties) == 0 {
		penalties = []float64{r.Sim.HoldPenaltyRate}
	}
	risks := spec.RiskPerTradePcts
	if len(risks) == 0 {
		risks = []float64{r.Sim.RiskPerTradePct}
	}

	// Load every dataset once up front; cells reference the shared
	// immutable series.
	seriesByID := make(map[string]model.Series, len(spec.DatasetIDs))
	for _, id := range spec.DatasetIDs {
		series, err := data.LoadDataset(r.Data.Dir, r.Data.SentimentDir, id)
		if err != nil {
			return nil, fmt.Errorf("loading dataset %s: %w", id, err)
		}
		seriesByID[id] = series
	}

	var jobs []job
	for _, strat := range spec.Strategies {
		for _, id := range spec.DatasetIDs {
			for _, pen := range penalties {
				for _, risk := range risks {
					jobs = append(jobs, job{strategy: strat, datasetID: id, holdPenalty: pen, riskPct: risk})
				}
			}
		}
	}
	log.Info().Int("cells", len(jobs)).Int("workers", r.workers()).Msg("starting experiment sweep")

	jobCh := make(chan job)
	resCh := make(chan Experiment, len(jobs))

	var wg sync.WaitGroup
	for w := 0; w < r.workers(); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobCh {
				exp, err := r.runCell(ctx, j, seriesByID[j.datasetID])
				if err != nil {
					log.Warn().
						Str("strategy", j.strategy).
						Str("dataset", j.datasetID).
						Err(err).
						Msg("experiment cell failed")
					continue
				}
				resCh <- exp
			}
		}()
	}

	for _, j := range jobs {
		select {
		case <-ctx.Done():
			close(jobCh)
			wg.Wait()
			return nil, ctx.Err()
		case jobCh <- j:
		}
	}
	close(jobCh)
	wg.Wait()
	close(resCh)

	out := make([]Experiment, 0, len(jobs))
	for exp := range resCh {
		out = append(out, exp)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("all %d experiment cells failed", len(jobs))
	}
	return out, nil
}

func (r *Runner) runCell(ctx context.Context, j job, series model.Series) (Experiment, error) {
	sim := r.Sim
	sim.HoldPenaltyRate = j.holdPenalty
	sim.RiskPerTradePct = j.riskPct

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
		return Experiment{}, err
	}

	strat, err := strategy.New(j.strategy, nil)
	if err != nil {
		return Experiment{}, err
	}

	run, err := (&backtest.Runner{
		Engine:    engine,
		Strategy:  strat,
		Analytics: r.Analytics,
	}).Run()
	if err != nil {
		return Experiment{}, err
	}

	exp := Experiment{
		ID:              NewID(time.Now()),
		CreatedAt:       time.Now().UTC(),
		Strategy:        j.strategy,
		DatasetID:       j.datasetID,
		Symbol:          series.Symbol,
		WindowSize:      sim.WindowSize,
		HoldPenaltyRate: j.holdPenalty,
		RiskPerTradePct: j.riskPct,
		Steps:           run.Steps,
		FinalScore:      run.FinalScore,
		Result:          run.Result,
	}
	if r.Store != nil {
		if err := r.Store.Save(ctx, exp); err != nil {
			return Experiment{}, fmt.Errorf("saving experiment: %w", err)
		}
	}
	return exp, nil
}

func (r *Runner) workers() int {
	if r.Workers <= 1 {
		return 1
	}
	return r.Workers
}
