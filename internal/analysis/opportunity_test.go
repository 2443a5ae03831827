package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-backtest/internal/model"
)

func mkSeries(symbol string, closes ...float64) model.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return model.Series{Symbol: symbol, Candles: candles}
}

func TestPercentileSorted(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.Zero(t, percentileSorted(nil, 0.5))
	assert.InDelta(t, 1.0, percentileSorted(sorted, 0), 1e-9)
	assert.InDelta(t, 5.0, percentileSorted(sorted, 1), 1e-9)
	assert.InDelta(t, 3.0, percentileSorted(sorted, 0.5), 1e-9)
	assert.InDelta(t, 2.0, percentileSorted(sorted, 0.25), 1e-9)
	// pos 0.4 interpolates between the first two order stats.
	assert.InDelta(t, 1.4, percentileSorted(sorted, 0.1), 1e-9)
}

func TestOracleProfitFrictionless(t *testing.T) {
	assert.InDelta(t, 10.0, oracleProfitCanonical([]float64{100, 110}, 0, 0), 1e-9)

	// Waiting for the dip beats buying immediately: 100/90*110 - 100.
	assert.InDelta(t, 200.0/9.0, oracleProfitCanonical([]float64{100, 90, 110}, 0, 0), 1e-9)
}

func TestOracleProfitNeverNegative(t *testing.T) {
	// Falling or flat markets: the oracle just stays in cash.
	assert.Zero(t, oracleProfitCanonical([]float64{100, 90, 80}, canonicalFeeRate, canonicalSlippage))
	assert.Zero(t, oracleProfitCanonical([]float64{100, 100, 100}, canonicalFeeRate, canonicalSlippage))
	assert.Zero(t, oracleProfitCanonical(nil, canonicalFeeRate, canonicalSlippage))
}

func TestOracleProfitPaysCosts(t *testing.T) {
	// One round trip on a doubling: fee and slippage shave both legs.
	got := oracleProfitCanonical([]float64{100, 200}, canonicalFeeRate, canonicalSlippage)
	assert.InDelta(t, 99.400700, got, 1e-5)
	assert.Less(t, got, 100.0)
}

func TestComputePotential(t *testing.T) {
	p := ComputePotential(mkSeries("BTC-USD", 100, 120, 90, 110))

	assert.Equal(t, "BTC-USD", p.Symbol)
	assert.Equal(t, 4, p.Count)
	assert.InDelta(t, 90.0, p.MinClose, 1e-9)
	assert.InDelta(t, 120.0, p.MaxClose, 1e-9)
	assert.InDelta(t, 105.0, p.MeanClose, 1e-9)
	assert.GreaterOrEqual(t, p.SpreadP95P05, 0.0)
	assert.Greater(t, p.OracleProfit, 0.0)
	assert.True(t, p.End.After(p.Start))
}

func TestComputePotentialEmpty(t *testing.T) {
	p := ComputePotential(model.Series{Symbol: "EMPTY"})
	assert.Equal(t, "EMPTY", p.Symbol)
	assert.Zero(t, p.Count)
	assert.Zero(t, p.OracleProfit)
}

func TestRankByOracleProfit(t *testing.T) {
	ranked := RankByOracleProfit(map[string]model.Series{
		"FLAT-USD": mkSeries("FLAT-USD", 100, 100, 100, 100),
		"WILD-USD": mkSeries("WILD-USD", 100, 150, 80, 140),
	})
	require.Len(t, ranked, 2)
	assert.Equal(t, "WILD-USD", ranked[0].Symbol)
	assert.Equal(t, "FLAT-USD", ranked[1].Symbol)
	assert.GreaterOrEqual(t, ranked[0].OracleProfit, ranked[1].OracleProfit)
}
