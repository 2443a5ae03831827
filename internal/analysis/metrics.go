package analysis

import "math"

// Defaults for the annualized ratio. Crypto venues trade every day of
// the year, so the annualization base is 365 rather than 252.
const (
	DefaultRiskFreeRate   = 0.05
	DefaultPeriodsPerYear = 365.0
)

// Params bundles the analytics knobs.
type Params struct {
	// RiskFreeRate is annual; it is de-annualized per step.
	RiskFreeRate float64
	// PeriodsPerYear is the annualization base for the Sharpe ratio.
	PeriodsPerYear float64
}

func DefaultParams() Params {
	return Params{RiskFreeRate: DefaultRiskFreeRate, PeriodsPerYear: DefaultPeriodsPerYear}
}

// Returns computes successive percentage changes of an equity curve.
// A curve with fewer than 2 points yields a single zero return.
func Returns(equityCurve []float64) []float64 {
	if len(equityCurve) < 2 {
		return []float64{0}
	}
	out := make([]float64, len(equityCurve)-1)
	for i := 1; i < len(equityCurve); i++ {
		prev := equityCurve[i-1]
		if prev != 0 {
			out[i-1] = (equityCurve[i] - prev) / prev
		}
	}
	return out
}

// SharpeRatio computes the annualized risk-adjusted return of an equity
// curve: mean excess return over its standard deviation, scaled by
// sqrt(periodsPerYear). Returns 0 when fewer than 2 returns exist or the
// curve is flat (zero deviation); both are defined fallbacks, not errors.
func SharpeRatio(equityCurve []float64, p Params) float64 {
	returns := Returns(equityCurve)
	if len(returns) < 2 || stdDev(returns) == 0 {
		return 0
	}
	perStepRF := p.RiskFreeRate / p.PeriodsPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - perStepRF
	}
	return mean(excess) / stdDev(excess) * math.Sqrt(p.PeriodsPerYear)
}

// MaxDrawdown scans the curve with a running peak and returns the
// deepest peak-to-trough decline as a percentage, together with its
// duration in steps (trough index minus the index of the preceding
// peak). A curve with fewer than 2 points yields (0, 0).
func MaxDrawdown(equityCurve []float64) (pct float64, durationSteps int) {
	if len(equityCurve) < 2 {
		return 0, 0
	}

	peak := equityCurve[0]
	maxDD := 0.0
	duration := 0
	currentDDStart := 0

	for i, val := range equityCurve {
		if val >= peak {
			peak = val
			currentDDStart = i
			continue
		}
		dd := (peak - val) / peak
		if dd > maxDD {
			maxDD = dd
			duration = i - currentDDStart
		}
	}
	return maxDD * 100, duration
}

// TradeStats summarizes realized per-trade P&L values. Wins are strictly
// positive; break-even trades count on the losing side.
type TradeStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
}

// AnalyzeTrades splits per-trade P&Ls into wins and losses. ProfitFactor
// is +Inf when nothing landed on the losing side, and 0 when there were
// no trades at all.
func AnalyzeTrades(tradePnLs []float64) TradeStats {
	if len(tradePnLs) == 0 {
		return TradeStats{}
	}

	var (
		grossProfit, grossLoss float64
		wins, losses           int
	)
	for _, pnl := range tradePnLs {
		if pnl > 0 {
			grossProfit += pnl
			wins++
		} else {
			grossLoss += -pnl
			losses++
		}
	}

	stats := TradeStats{
		TotalTrades:   len(tradePnLs),
		WinningTrades: wins,
		LosingTrades:  losses,
		WinRate:       float64(wins) / float64(len(tradePnLs)) * 100,
	}
	if grossLoss > 0 {
		stats.ProfitFactor = grossProfit / grossLoss
	} else {
		stats.ProfitFactor = math.Inf(1)
	}
	if wins > 0 {
		stats.AvgWin = grossProfit / float64(wins)
	}
	if losses > 0 {
		stats.AvgLoss = -grossLoss / float64(losses)
	}
	return stats
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdDev is the population standard deviation (divide by n).
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
