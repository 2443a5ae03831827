package model

import (
	"fmt"
	"time"
)

// Candle is one row of an OHLCV series with an attached sentiment
// reading.
//
// Sentiment is a signed signal in [-1, 1]; rows without a reading carry
// 0. Timestamps come from the loader already parsed and ordered.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	Sentiment float64   `json:"sentiment_score"`
}

// Series is a time-ordered candle sequence for a single instrument.
type Series struct {
	Symbol  string   `json:"symbol"`
	Candles []Candle `json:"candles"`
}

func (s Series) Len() int { return len(s.Candles) }

// Start returns the first timestamp, zero when empty.
func (s Series) Start() time.Time {
	if len(s.Candles) == 0 {
		return time.Time{}
	}
	return s.Candles[0].Timestamp
}

// End returns the last timestamp, zero when empty.
func (s Series) End() time.Time {
	if len(s.Candles) == 0 {
		return time.Time{}
	}
	return s.Candles[len(s.Candles)-1].Timestamp
}

// Closes returns the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Returns computes the per-row percentage change of the close column,
// aligned with the rows. The first element is 0 (no prior close).
func (s Series) Returns() []float64 {
	if len(s.Candles) == 0 {
		return nil
	}
	out := make([]float64, len(s.Candles))
	for i := 1; i < len(s.Candles); i++ {
		prev := s.Candles[i-1].Close
		if prev != 0 {
			out[i] = (s.Candles[i].Close - prev) / prev
		}
	}
	return out
}

// Validate checks the input contract the simulation relies on: a
// non-empty series with strictly increasing timestamps. Price sanity is
// the loader's job.
func (s Series) Validate() error {
	if len(s.Candles) == 0 {
		return fmt.Errorf("series %s is empty", s.Symbol)
	}
	for i := 1; i < len(s.Candles); i++ {
		if !s.Candles[i].Timestamp.After(s.Candles[i-1].Timestamp) {
			return fmt.Errorf("series %s: timestamps not strictly increasing at row %d", s.Symbol, i)
		}
	}
	return nil
}

// Slice returns a view of rows [from, to).
func (s Series) Slice(from, to int) Series {
	if from < 0 {
		from = 0
	}
	if to > len(s.Candles) {
		to = len(s.Candles)
	}
	if from > to {
		from = to
	}
	return Series{Symbol: s.Symbol, Candles: s.Candles[from:to]}
}
