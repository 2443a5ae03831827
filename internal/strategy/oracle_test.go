package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-backtest/internal/model"
)

var _ Primed = (*OracleStrategy)(nil)

func seriesOf(closes ...float64) model.Series {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		candles[i] = model.Candle{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
	}
	return model.Series{Symbol: "TEST-USD", Candles: candles}
}

func oracleAction(t *testing.T, s *OracleStrategy, step int) model.Action {
	t.Helper()
	return s.Decide(Observation{Step: step})
}

func TestOraclePrimeRejectsShortSeries(t *testing.T) {
	s := NewOracleStrategy()
	err := s.Prime(RunContext{
		Series:     seriesOf(100, 100, 100),
		Costs:      model.PortfolioParams{InitialCapital: 100},
		WindowSize: 2,
	})
	require.Error(t, err)
}

func TestOraclePlanTimesTheDip(t *testing.T) {
	s := NewOracleStrategy()
	err := s.Prime(RunContext{
		Series:     seriesOf(100, 100, 100, 50, 100, 100),
		Costs:      model.PortfolioParams{InitialCapital: 100},
		WindowSize: 2,
	})
	require.NoError(t, err)

	// Flat until the dip, long through the recovery, out at the top.
	assert.Equal(t, model.ActionSell, oracleAction(t, s, 2))
	assert.Equal(t, model.ActionBuy, oracleAction(t, s, 3))
	assert.Equal(t, model.ActionSell, oracleAction(t, s, 4))

	// Rows outside the actionable range have no plan.
	assert.Equal(t, model.ActionHold, oracleAction(t, s, 0))
	assert.Equal(t, model.ActionHold, oracleAction(t, s, 1))
	assert.Equal(t, model.ActionHold, oracleAction(t, s, 5))
}

func TestOraclePlanEndsLongWhenExitCostsMore(t *testing.T) {
	s := NewOracleStrategy()
	err := s.Prime(RunContext{
		Series:     seriesOf(100, 100, 200, 400),
		Costs:      model.PortfolioParams{InitialCapital: 100, FeeRate: 0.001, Slippage: 0.0005},
		WindowSize: 1,
	})
	require.NoError(t, err)

	// Selling at 200 nets less than marking the position at 200.
	assert.Equal(t, model.ActionBuy, oracleAction(t, s, 1))
	assert.Equal(t, model.ActionBuy, oracleAction(t, s, 2))
}

func TestOracleStaysFlatInFallingMarket(t *testing.T) {
	s := NewOracleStrategy()
	err := s.Prime(RunContext{
		Series:     seriesOf(100, 90, 80, 70, 60),
		Costs:      model.PortfolioParams{InitialCapital: 100, FeeRate: 0.001, Slippage: 0.0005},
		WindowSize: 1,
	})
	require.NoError(t, err)

	for step := 1; step <= 3; step++ {
		assert.Equal(t, model.ActionSell, oracleAction(t, s, step), "step %d", step)
	}
	assert.Contains(t, s.Reasoning(), "flat")
}

func TestOracleDecideOutOfRange(t *testing.T) {
	s := NewOracleStrategy()
	assert.Equal(t, model.ActionHold, s.Decide(Observation{Step: -1}))
	assert.Equal(t, model.ActionHold, s.Decide(Observation{Step: 99}))
}
