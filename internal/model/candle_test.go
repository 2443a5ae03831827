package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func series(closes ...float64) Series {
	s := Series{Symbol: "BTCUSDT"}
	for i, c := range closes {
		s.Candles = append(s.Candles, Candle{
			Timestamp: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
			Open:      c, High: c, Low: c, Close: c,
			Volume: 1000,
		})
	}
	return s
}

func TestSeriesReturns(t *testing.T) {
	s := series(100, 110, 99)
	r := s.Returns()
	assert.Len(t, r, 3)
	assert.Zero(t, r[0])
	assert.InDelta(t, 0.10, r[1], 1e-9)
	assert.InDelta(t, -0.10, r[2], 1e-9)

	assert.Nil(t, Series{}.Returns())
}

func TestSeriesValidate(t *testing.T) {
	assert.NoError(t, series(1, 2, 3).Validate())
	assert.Error(t, Series{Symbol: "X"}.Validate())

	dup := series(1, 2)
	dup.Candles[1].Timestamp = dup.Candles[0].Timestamp
	assert.Error(t, dup.Validate())

	backwards := series(1, 2)
	backwards.Candles[1].Timestamp = dup.Candles[0].Timestamp.Add(-time.Hour)
	assert.Error(t, backwards.Validate())
}

func TestSeriesSlice(t *testing.T) {
	s := series(1, 2, 3, 4, 5)

	assert.Equal(t, []float64{2, 3}, s.Slice(1, 3).Closes())
	assert.Equal(t, 5, s.Slice(-10, 99).Len())
	assert.Equal(t, 0, s.Slice(4, 2).Len())
}

func TestSeriesStartEnd(t *testing.T) {
	s := series(1, 2, 3)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.Start())
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), s.End())
	assert.True(t, Series{}.Start().IsZero())
	assert.True(t, Series{}.End().IsZero())
}

func TestActionNames(t *testing.T) {
	assert.Equal(t, "HOLD", ActionHold.String())
	assert.Equal(t, "BUY", ActionBuy.String())
	assert.Equal(t, "SELL", ActionSell.String())
	assert.True(t, ActionBuy.Valid())
	assert.False(t, Action(7).Valid())

	a, err := ParseAction("sell")
	assert.NoError(t, err)
	assert.Equal(t, ActionSell, a)

	_, err = ParseAction("SHORT")
	assert.Error(t, err)
}
