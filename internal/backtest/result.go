package backtest

import (
	"time"

	"cortex-backtest/internal/model"
	"cortex-backtest/internal/strategy"
)

// StepRecord is one row of per-step output.
// This is the primary artifact for "what happened" in a backtest.
type StepRecord struct {
	Index int `json:"index"` // row index in the source series

	Timestamp time.Time    `json:"timestamp"`
	Action    model.Action `json:"action"`
	Price     float64      `json:"price"`

	PortfolioValue float64 `json:"portfolio_value"`
	Cash           float64 `json:"cash"`
	PositionQty    float64 `json:"position_qty"`

	Reward      float64 `json:"reward"`
	Score       float64 `json:"score"`
	HoldPenalty float64 `json:"hold_penalty"`
	Sentiment   float64 `json:"sentiment"`
}

// StepResult is what one Step call hands back to the driver: the next
// observation plus everything the caller may want to log or stream.
type StepResult struct {
	Observation strategy.Observation
	Reward      float64
	Done        bool

	// Fill is non-nil only when the action produced a trade.
	Fill *model.Fill

	PortfolioValue   float64
	Score            float64
	HoldPenalty      float64
	TotalHoldPenalty float64

	Step       int // cursor position after the step
	TotalSteps int // length of the source series
}
