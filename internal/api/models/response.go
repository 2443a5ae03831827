package models

import (
	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/backtest"
)

// BacktestResponse is the outcome of one run.
type BacktestResponse struct {
	Status  string                  `json:"status"`
	Summary analysis.BacktestResult `json:"summary"`

	FinalScore       float64 `json:"final_score"`
	TotalHoldPenalty float64 `json:"total_hold_penalty"`
	Steps            int     `json:"steps"`

	EquityCurve []float64             `json:"equity_curve,omitempty"`
	StepLog     []backtest.StepRecord `json:"step_log,omitempty"`
}

// CompareResponse lists per-variation summaries, ordered as requested.
type CompareResponse struct {
	Comparison []ComparisonEntry `json:"comparison"`
}

type ComparisonEntry struct {
	Name       string                  `json:"name"`
	Summary    analysis.BacktestResult `json:"summary"`
	FinalScore float64                 `json:"final_score"`
	Error      string                  `json:"error,omitempty"`
}

// StrategyInfo describes a registered strategy for listings.
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters,omitempty"`
}

// ParameterInfo describes one tunable strategy parameter.
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "float", "int", "string"
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// RankEntry is one row of the opportunity ranking.
type RankEntry struct {
	Rank         int     `json:"rank"`
	DatasetID    string  `json:"dataset_id"`
	Symbol       string  `json:"symbol"`
	Rows         int     `json:"rows"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`
	MinClose     float64 `json:"min_close"`
	MaxClose     float64 `json:"max_close"`
	OracleProfit float64 `json:"oracle_profit"`
}

// StreamMessage is one websocket frame of a streamed backtest: a step
// record while running, then a final frame carrying the summary.
type StreamMessage struct {
	Type   string               `json:"type"` // "step" | "result" | "error"
	Step   *backtest.StepRecord `json:"step,omitempty"`
	Result *BacktestResponse    `json:"result,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// ErrorResponse is the error envelope every endpoint uses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}
