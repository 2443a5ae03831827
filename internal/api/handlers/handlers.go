package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/api/models"
	"cortex-backtest/internal/backtest"
	"cortex-backtest/internal/cache"
	"cortex-backtest/internal/config"
	"cortex-backtest/internal/data"
	"cortex-backtest/internal/model"
	"cortex-backtest/internal/provider"
	"cortex-backtest/internal/strategy"
)

// Deps holds what every handler needs: the server config plus the
// optional externals wired into strategies that use them.
type Deps struct {
	Cfg           *config.Config
	StrategyDeps  strategy.Deps
	providerCache cache.Cache
}

// NewDeps builds handler dependencies from the config. The analyzer is
// wired only when a provider key is present; everything else works
// without it.
func NewDeps(cfg *config.Config) *Deps {
	d := &Deps{Cfg: cfg}
	if key := cfg.Provider.APIKey(); key != "" {
		client, err := provider.NewClient(provider.ClientConfig{
			APIKey:            key,
			BaseURL:           cfg.Provider.BaseURL,
			Model:             cfg.Provider.Model,
			Timeout:           cfg.Provider.Timeout,
			RequestsPerMinute: cfg.Provider.RequestsPerMinute,
		})
		if err != nil {
			log.Warn().Err(err).Msg("analyzer provider disabled")
		} else {
			d.providerCache = cache.NewAuto()
			d.StrategyDeps = strategy.Deps{Analyzer: client, Cache: d.providerCache}
		}
	}
	return d
}

// Close releases pooled resources.
func (d *Deps) Close() {
	if d.providerCache != nil {
		_ = d.providerCache.Close()
	}
}

func abortError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, models.NewError(code, err.Error()))
}

// loadSeries resolves a dataset by ID and optionally trims it.
func (d *Deps) loadSeries(datasetID string, limitRows int) (model.Series, error) {
	series, err := data.LoadDataset(d.Cfg.Data.Dir, d.Cfg.Data.SentimentDir, datasetID)
	if err != nil {
		return model.Series{}, fmt.Errorf("dataset %s: %w", datasetID, err)
	}
	if limitRows > 0 && limitRows < series.Len() {
		series = series.Slice(0, limitRows)
	}
	return series, nil
}

// mergedSim overlays request overrides onto the server's simulation
// defaults.
func (d *Deps) mergedSim(o models.SimOverrides) config.SimulationConfig {
	return config.MergeSimulation(d.Cfg.Simulation, simFromOverrides(o))
}

func simFromOverrides(o models.SimOverrides) config.SimulationConfig {
	return config.SimulationConfig{
		InitialCapital:  o.InitialCapital,
		FeeRate:         o.FeeRate,
		Slippage:        o.Slippage,
		RiskPerTradePct: o.RiskPerTradePct,
		WindowSize:      o.WindowSize,
		HoldPenaltyRate: o.HoldPenaltyRate,
	}
}

// buildRunner assembles an engine and strategy for one run.
func (d *Deps) buildRunner(series model.Series, sim config.SimulationConfig, stratCfg models.StrategyConfig) (*backtest.Runner, error) {
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
		return nil, err
	}
	strat, err := strategy.NewWithDeps(stratCfg.Name, stratCfg.Params, d.StrategyDeps)
	if err != nil {
		return nil, err
	}
	return &backtest.Runner{
		Engine:    engine,
		Strategy:  strat,
		Analytics: d.analytics(),
	}, nil
}

func (d *Deps) analytics() analysis.Params {
	return analysis.Params{
		RiskFreeRate:   d.Cfg.Analytics.RiskFreeRate,
		PeriodsPerYear: d.Cfg.Analytics.TradingPeriodsPerYear,
	}
}

func buildResponse(run backtest.RunResult, opts models.RunOptions) models.BacktestResponse {
	resp := models.BacktestResponse{
		Status:           "completed",
		Summary:          run.Result,
		FinalScore:       run.FinalScore,
		TotalHoldPenalty: run.TotalHoldPenalty,
		Steps:            run.Steps,
	}
	if opts.IncludeEquityCurve {
		resp.EquityCurve = run.EquityCurve
	}
	if opts.IncludeStepLog {
		resp.StepLog = run.StepLog
	}
	return resp
}

// Health handles GET /health.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
