package analysis

import (
	"encoding/json"
	"fmt"
	"math"
)

// BacktestResult is the read-only summary of one completed run. It is
// computed once from the equity curve and trade P&Ls and never mutated
// afterward.
type BacktestResult struct {
	StrategyName string `json:"strategy_name"`
	Symbol       string `json:"symbol"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`

	InitialCapital float64 `json:"initial_capital"`
	FinalValue     float64 `json:"final_value"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalReturnPct float64 `json:"total_return_pct"`
	SharpeRatio    float64 `json:"sharpe_ratio"`

	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	MaxDrawdownDuration int     `json:"max_drawdown_duration_steps"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
}

// Build computes every metric from a completed equity curve and the
// realized per-trade P&Ls.
func Build(strategyName, symbol, startDate, endDate string, initialCapital float64, equityCurve, tradePnLs []float64, p Params) BacktestResult {
	finalValue := initialCapital
	if len(equityCurve) > 0 {
		finalValue = equityCurve[len(equityCurve)-1]
	}
	totalPnL := finalValue - initialCapital

	maxDD, maxDDDuration := MaxDrawdown(equityCurve)
	trades := AnalyzeTrades(tradePnLs)

	return BacktestResult{
		StrategyName:        strategyName,
		Symbol:              symbol,
		StartDate:           startDate,
		EndDate:             endDate,
		InitialCapital:      initialCapital,
		FinalValue:          finalValue,
		TotalPnL:            totalPnL,
		TotalReturnPct:      totalPnL / initialCapital * 100,
		SharpeRatio:         SharpeRatio(equityCurve, p),
		MaxDrawdownPct:      maxDD,
		MaxDrawdownDuration: maxDDDuration,
		TotalTrades:         trades.TotalTrades,
		WinningTrades:       trades.WinningTrades,
		LosingTrades:        trades.LosingTrades,
		WinRate:             trades.WinRate,
		ProfitFactor:        trades.ProfitFactor,
		AvgWin:              trades.AvgWin,
		AvgLoss:             trades.AvgLoss,
	}
}

// MarshalJSON writes the profit factor as the string "Infinity" when it
// is infinite; encoding/json rejects non-finite numbers, and a run
// without losing trades produces exactly that.
func (r BacktestResult) MarshalJSON() ([]byte, error) {
	type alias BacktestResult
	var pf any = r.ProfitFactor
	if math.IsInf(r.ProfitFactor, 1) {
		pf = "Infinity"
	}
	return json.Marshal(struct {
		alias
		ProfitFactor any `json:"profit_factor"`
	}{alias(r), pf})
}

func (r *BacktestResult) UnmarshalJSON(data []byte) error {
	type alias BacktestResult
	aux := struct {
		*alias
		ProfitFactor json.RawMessage `json:"profit_factor"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.ProfitFactor) == 0 {
		return nil
	}
	var s string
	if err := json.Unmarshal(aux.ProfitFactor, &s); err == nil {
		if s != "Infinity" {
			return fmt.Errorf("invalid profit_factor %q", s)
		}
		r.ProfitFactor = math.Inf(1)
		return nil
	}
	var f float64
	if err := json.Unmarshal(aux.ProfitFactor, &f); err != nil {
		return fmt.Errorf("invalid profit_factor: %w", err)
	}
	r.ProfitFactor = f
	return nil
}
