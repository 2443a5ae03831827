package models

// BacktestRequest is the body for running one backtest over a stored
// dataset.
type BacktestRequest struct {
	DatasetID  string         `json:"dataset_id" binding:"required"`
	Strategy   StrategyConfig `json:"strategy" binding:"required"`
	Simulation SimOverrides   `json:"simulation,omitempty"`
	Options    RunOptions     `json:"options,omitempty"`
}

// StrategyConfig names a registered strategy and its parameters.
type StrategyConfig struct {
	Name   string         `json:"name" binding:"required"`
	Params map[string]any `json:"params,omitempty"`
}

// SimOverrides are non-zero fields overlaid onto the server's simulation
// defaults, mirroring the config file's simulation section.
type SimOverrides struct {
	InitialCapital  float64 `json:"initial_capital,omitempty"`
	FeeRate         float64 `json:"fee_rate,omitempty"`
	Slippage        float64 `json:"slippage,omitempty"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct,omitempty"`
	WindowSize      int     `json:"window_size,omitempty"`
	HoldPenaltyRate float64 `json:"hold_penalty_rate,omitempty"`
}

// RunOptions trims or enriches the response.
type RunOptions struct {
	LimitRows          int  `json:"limit_rows,omitempty"` // 0 = whole dataset
	IncludeStepLog     bool `json:"include_step_log,omitempty"`
	IncludeEquityCurve bool `json:"include_equity_curve,omitempty"`
}

// CompareRequest runs several strategy variations over one dataset.
type CompareRequest struct {
	DatasetID  string       `json:"dataset_id" binding:"required"`
	Simulation SimOverrides `json:"simulation,omitempty"`
	Variations []Variation  `json:"variations" binding:"required,min=1"`
}

// Variation is one labelled entrant in a comparison.
type Variation struct {
	Name       string         `json:"name" binding:"required"`
	Strategy   StrategyConfig `json:"strategy" binding:"required"`
	Simulation SimOverrides   `json:"simulation,omitempty"`
}

// ExperimentRequest starts a grid sweep. Either a preset name or an
// explicit grid must be given.
type ExperimentRequest struct {
	Preset     string      `json:"preset,omitempty"` // quick | standard | full
	Grid       *GridConfig `json:"grid,omitempty"`
	DatasetIDs []string    `json:"dataset_ids,omitempty"` // defaults to every dataset
	Workers    int         `json:"workers,omitempty"`
}

// GridConfig is an explicit sweep definition.
type GridConfig struct {
	Strategies       []string  `json:"strategies" binding:"required,min=1"`
	HoldPenaltyRates []float64 `json:"hold_penalty_rates,omitempty"`
	RiskPerTradePcts []float64 `json:"risk_per_trade_pcts,omitempty"`
}
