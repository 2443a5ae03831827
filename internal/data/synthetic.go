package data

import (
	"encoding/csv"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"cortex-backtest/internal/model"
)

// SyntheticParams shapes a generated series. The generator is a seeded
// geometric random walk with a slow sine regime on top, so demos and
// fixtures are reproducible and have something for strategies to find.
type SyntheticParams struct {
	Symbol     string
	Rows       int
	Seed       int64
	StartPrice float64
	Start      time.Time
	Interval   time.Duration
	Volatility float64 // per-step return stddev
	Drift      float64 // per-step mean return
}

func (p SyntheticParams) withDefaults() SyntheticParams {
	if p.Symbol == "" {
		p.Symbol = "SYNTH"
	}
	if p.Rows == 0 {
		p.Rows = 365
	}
	if p.StartPrice == 0 {
		p.StartPrice = 100
	}
	if p.Start.IsZero() {
		p.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if p.Interval == 0 {
		p.Interval = 24 * time.Hour
	}
	if p.Volatility == 0 {
		p.Volatility = 0.02
	}
	return p
}

// Synthetic generates a reproducible OHLCV+sentiment series.
func Synthetic(p SyntheticParams) model.Series {
	p = p.withDefaults()
	rng := rand.New(rand.NewSource(p.Seed))

	candles := make([]model.Candle, p.Rows)
	price := p.StartPrice
	for i := range candles {
		regime := 0.5 * p.Volatility * math.Sin(2*math.Pi*float64(i)/90)
		ret := p.Drift + regime + rng.NormFloat64()*p.Volatility
		open := price
		price = price * (1 + ret)
		if price < 0.01 {
			price = 0.01
		}

		hi := math.Max(open, price) * (1 + rng.Float64()*0.005)
		lo := math.Min(open, price) * (1 - rng.Float64()*0.005)

		// Sentiment loosely tracks the move with noise, clamped to [-1, 1].
		sent := ret*20 + rng.NormFloat64()*0.3
		sent = math.Max(-1, math.Min(1, sent))

		candles[i] = model.Candle{
			Timestamp: p.Start.Add(time.Duration(i) * p.Interval),
			Open:      open,
			High:      hi,
			Low:       lo,
			Close:     price,
			Volume:    1000 + rng.Float64()*9000,
			Sentiment: sent,
		}
	}
	return model.Series{Symbol: p.Symbol, Candles: candles}
}

// WriteSeriesCSV writes a series in the loader's column layout.
func WriteSeriesCSV(path string, series model.Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "open", "high", "low", "close", "volume", "sentiment_score"}); err != nil {
		return err
	}
	for _, c := range series.Candles {
		row := []string{
			c.Timestamp.Format(time.RFC3339),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
			formatFloat(c.Sentiment),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
