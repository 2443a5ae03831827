package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturns(t *testing.T) {
	assert.Equal(t, []float64{0}, Returns(nil))
	assert.Equal(t, []float64{0}, Returns([]float64{100}))

	r := Returns([]float64{100, 110, 99})
	assert.Len(t, r, 2)
	assert.InDelta(t, 0.10, r[0], 1e-9)
	assert.InDelta(t, -0.10, r[1], 1e-9)
}

func TestSharpeRatio(t *testing.T) {
	p := DefaultParams()

	// Too short and flat curves are defined to be 0, not an error.
	assert.Zero(t, SharpeRatio(nil, p))
	assert.Zero(t, SharpeRatio([]float64{100}, p))
	assert.Zero(t, SharpeRatio([]float64{100, 110}, p))
	assert.Zero(t, SharpeRatio([]float64{100, 100, 100, 100}, p))

	// Identical step returns have zero deviation.
	assert.Zero(t, SharpeRatio([]float64{100, 110, 121}, p))

	// Hand-computed: returns [0.1, -0.0454545...], rf 5%/365.
	got := SharpeRatio([]float64{100, 110, 105}, p)
	assert.InDelta(t, 7.1284, got, 1e-3)

	// Losing curves annualize negative.
	assert.Less(t, SharpeRatio([]float64{100, 90, 85, 70}, p), 0.0)
}

func TestMaxDrawdown(t *testing.T) {
	pct, dur := MaxDrawdown([]float64{100, 120, 90, 110})
	assert.InDelta(t, 25.0, pct, 1e-9) // (120-90)/120
	assert.Equal(t, 1, dur)            // peak at index 1, trough at index 2

	pct, dur = MaxDrawdown([]float64{100, 110, 120, 130})
	assert.Zero(t, pct)
	assert.Zero(t, dur)

	pct, dur = MaxDrawdown([]float64{100, 50})
	assert.InDelta(t, 50.0, pct, 1e-9)
	assert.Equal(t, 1, dur)

	// Longer slide: peak at 0, trough at index 3.
	pct, dur = MaxDrawdown([]float64{100, 90, 80, 60, 95})
	assert.InDelta(t, 40.0, pct, 1e-9)
	assert.Equal(t, 3, dur)

	pct, dur = MaxDrawdown([]float64{100})
	assert.Zero(t, pct)
	assert.Zero(t, dur)
}

func TestMaxDrawdownBounded(t *testing.T) {
	curves := [][]float64{
		{100, 0.5, 200, 1, 300},
		{1, 1000, 1, 1000, 1},
		{42, 42, 42},
	}
	for _, curve := range curves {
		pct, dur := MaxDrawdown(curve)
		assert.GreaterOrEqual(t, pct, 0.0)
		assert.LessOrEqual(t, pct, 100.0)
		assert.GreaterOrEqual(t, dur, 0)
	}
}

func TestAnalyzeTradesNoTrades(t *testing.T) {
	stats := AnalyzeTrades(nil)
	assert.Zero(t, stats.TotalTrades)
	assert.Zero(t, stats.WinRate)
	assert.Zero(t, stats.ProfitFactor)
}

// All wins means an infinite profit factor, not a division error.
func TestAnalyzeTradesAllWins(t *testing.T) {
	stats := AnalyzeTrades([]float64{5, 3, 2})
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 3, stats.WinningTrades)
	assert.Zero(t, stats.LosingTrades)
	assert.InDelta(t, 100.0, stats.WinRate, 1e-9)
	assert.True(t, math.IsInf(stats.ProfitFactor, 1))
	assert.InDelta(t, 10.0/3.0, stats.AvgWin, 1e-9)
	assert.Zero(t, stats.AvgLoss)
}

func TestAnalyzeTradesMixed(t *testing.T) {
	// Break-even trades land on the losing side.
	stats := AnalyzeTrades([]float64{10, -5, 3, -2, 0})
	assert.Equal(t, 5, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 3, stats.LosingTrades)
	assert.InDelta(t, 40.0, stats.WinRate, 1e-9)
	assert.InDelta(t, 13.0/7.0, stats.ProfitFactor, 1e-9)
	assert.InDelta(t, 6.5, stats.AvgWin, 1e-9)
	assert.InDelta(t, -7.0/3.0, stats.AvgLoss, 1e-9)
}

func TestStdDevPopulation(t *testing.T) {
	// Population deviation divides by n: [1,3] has std 1, not sqrt(2).
	assert.InDelta(t, 1.0, stdDev([]float64{1, 3}), 1e-9)
	assert.Zero(t, stdDev([]float64{5, 5, 5}))
	assert.Zero(t, stdDev(nil))
}
