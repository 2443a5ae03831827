package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-backtest/internal/model"
)

// flatSeries builds n daily candles at a constant price.
func flatSeries(n int, price float64) model.Series {
	return rampSeries(n, price, 0)
}

// rampSeries builds n daily candles starting at price, stepping by delta
// per candle.
func rampSeries(n int, price, delta float64) model.Series {
	candles := make([]model.Candle, n)
	for i := range candles {
		p := price + delta*float64(i)
		candles[i] = model.Candle{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:      p,
			High:      p * 1.01,
			Low:       p * 0.99,
			Close:     p,
			Volume:    1000,
		}
	}
	return model.Series{Symbol: "BTCUSDT", Candles: candles}
}

func newTestEngine(t *testing.T, cfg Config, series model.Series) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, series)
	require.NoError(t, err)
	return e
}

func TestNewEngineValidation(t *testing.T) {
	cfg := DefaultConfig()

	_, err := NewEngine(cfg, model.Series{Symbol: "X"})
	assert.Error(t, err, "empty series")

	_, err = NewEngine(cfg, flatSeries(cfg.WindowSize+1, 100))
	assert.Error(t, err, "series shorter than window+2")

	short := cfg
	short.WindowSize = 0
	_, err = NewEngine(short, flatSeries(30, 100))
	assert.Error(t, err, "zero window")

	bad := cfg
	bad.RiskPerTradePct = 1.5
	_, err = NewEngine(bad, flatSeries(30, 100))
	assert.Error(t, err, "risk over 100%")

	_, err = NewEngine(cfg, flatSeries(30, 100))
	assert.NoError(t, err)
}

func TestStepBeforeReset(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), flatSeries(30, 100))
	_, err := e.Step(model.ActionHold)
	assert.ErrorIs(t, err, ErrNotActive)
}

// One HOLD on a flat series with a 5% penalty rate: 5.0 leaves the cash,
// cumulative penalty matches, and the score takes both the loss hit and
// the penalty hit.
func TestHoldPenalty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldPenaltyRate = 0.05
	e := newTestEngine(t, cfg, flatSeries(30, 100))

	e.Reset()
	res, err := e.Step(model.ActionHold)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, res.HoldPenalty, 1e-9)
	assert.InDelta(t, 95.0, e.Portfolio().Cash, 1e-9)
	assert.InDelta(t, 5.0, e.TotalHoldPenalty(), 1e-9)

	// reward = -0.05, score = 1000 - 0.05*150 - (5/100)*50
	assert.InDelta(t, -0.05, res.Reward, 1e-9)
	assert.InDelta(t, 990.0, res.Score, 1e-9)
}

func TestHoldPenaltyBelowThresholdSkipped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldPenaltyRate = 0.00001 // 100 * rate = 0.001 < 0.01
	e := newTestEngine(t, cfg, flatSeries(30, 100))

	e.Reset()
	res, err := e.Step(model.ActionHold)
	require.NoError(t, err)
	assert.Zero(t, res.HoldPenalty)
	assert.InDelta(t, 100.0, e.Portfolio().Cash, 1e-9)
	assert.InDelta(t, 1000.0, res.Score, 1e-9)
}

func TestBuyInvestsFractionOfValue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPerTradePct = 0.5
	e := newTestEngine(t, cfg, flatSeries(30, 100))

	e.Reset()
	res, err := e.Step(model.ActionBuy)
	require.NoError(t, err)

	require.NotNil(t, res.Fill)
	assert.Equal(t, model.SideBuy, res.Fill.Side)
	assert.InDelta(t, 50.0, res.Fill.TotalCost, 1e-9)
	assert.InDelta(t, 50.0, e.Portfolio().Cash, 1e-9)
}

func TestSellWithoutPositionIsNoFill(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), flatSeries(30, 100))
	e.Reset()
	res, err := e.Step(model.ActionSell)
	require.NoError(t, err)
	assert.Nil(t, res.Fill)
	assert.Empty(t, e.TradePnLs())
}

func TestSellRecordsTradePnL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPerTradePct = 0.5
	e := newTestEngine(t, cfg, rampSeries(30, 100, 1))

	e.Reset()
	_, err := e.Step(model.ActionBuy)
	require.NoError(t, err)
	res, err := e.Step(model.ActionSell)
	require.NoError(t, err)

	require.NotNil(t, res.Fill)
	pnls := e.TradePnLs()
	require.Len(t, pnls, 1)
	// Price stepped up between the buy and the sell; net of fees the
	// round trip is profitable.
	assert.Greater(t, pnls[0], 0.0)
	assert.InDelta(t, res.Fill.TotalCost-res.Fill.Quantity*res.Fill.Price, pnls[0], 1e-9)
}

// The engine reserves the final row as a boundary: after the last usable
// row the episode is terminal and Step refuses without mutating anything.
func TestTerminalGuard(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 5
	series := flatSeries(cfg.WindowSize+4, 100)
	e := newTestEngine(t, cfg, series)

	e.Reset()
	steps := 0
	for !e.Done() {
		res, err := e.Step(model.ActionHold)
		require.NoError(t, err)
		steps++
		if res.Done {
			assert.Empty(t, res.Observation.Window)
		}
	}
	assert.Equal(t, e.ActionableSteps(), steps)
	assert.Equal(t, PhaseTerminal, e.Phase())

	logLen := len(e.StepLog())
	curveLen := len(e.EquityCurve())
	cash := e.Portfolio().Cash
	score := e.Score()

	_, err := e.Step(model.ActionBuy)
	assert.ErrorIs(t, err, ErrDone)

	assert.Len(t, e.StepLog(), logLen)
	assert.Len(t, e.EquityCurve(), curveLen)
	assert.Equal(t, cash, e.Portfolio().Cash)
	assert.Equal(t, score, e.Score())
}

func TestResetIdempotent(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), rampSeries(40, 100, 0.5))

	first := e.Reset()
	second := e.Reset()
	assert.Equal(t, first, second)
	assert.InDelta(t, 1000.0, e.Score(), 1e-9)
	assert.Zero(t, e.TotalHoldPenalty())
	assert.Empty(t, e.StepLog())
	assert.Empty(t, e.EquityCurve())

	// A dirty engine resets back to the same first observation.
	_, err := e.Step(model.ActionBuy)
	require.NoError(t, err)
	third := e.Reset()
	assert.Equal(t, first, third)
	assert.InDelta(t, e.Config().Portfolio.InitialCapital, e.Portfolio().Cash, 1e-9)
}

func TestObservationWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 10
	e := newTestEngine(t, cfg, rampSeries(40, 100, 1))

	obs := e.Reset()
	assert.Len(t, obs.Window, 10)
	assert.Len(t, obs.Returns, 10)
	assert.Equal(t, 10, obs.Step)
	// Window holds rows strictly before the cursor.
	assert.InDelta(t, 109.0, obs.Window[len(obs.Window)-1].Close, 1e-9)
	assert.InDelta(t, 110.0, obs.CurrentPrice, 1e-9)
	assert.InDelta(t, 100.0, obs.Cash, 1e-9)
}

// Score stays in [0, 1000] and cash stays non-negative no matter how the
// actions land, here across a boom-bust series with a harsh penalty.
func TestScoreAndCashBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HoldPenaltyRate = 0.2
	cfg.RiskPerTradePct = 1.0

	candles := make([]model.Candle, 120)
	price := 100.0
	for i := range candles {
		if i%7 < 4 {
			price *= 1.30
		} else {
			price *= 0.55
		}
		candles[i] = model.Candle{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:      price, High: price, Low: price, Close: price, Volume: 500,
		}
	}
	e := newTestEngine(t, cfg, model.Series{Symbol: "X", Candles: candles})

	e.Reset()
	actions := []model.Action{model.ActionBuy, model.ActionHold, model.ActionSell}
	for i := 0; !e.Done(); i++ {
		res, err := e.Step(actions[i%len(actions)])
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 1000.0)
		assert.GreaterOrEqual(t, e.Portfolio().Cash, 0.0)
	}
}

func TestStepLogRecords(t *testing.T) {
	cfg := DefaultConfig()
	e := newTestEngine(t, cfg, flatSeries(30, 100))

	e.Reset()
	_, err := e.Step(model.ActionBuy)
	require.NoError(t, err)

	recs := e.StepLog()
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, cfg.WindowSize, rec.Index)
	assert.Equal(t, model.ActionBuy, rec.Action)
	assert.InDelta(t, 100.0, rec.Price, 1e-9)
	assert.Greater(t, rec.PositionQty, 0.0)
	assert.Equal(t, rec, e.LastStep())
}
