package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"cortex-backtest/internal/model"
)

// Column names are normalized case- and space-insensitively, so files
// exported from different venues load without editing. Sentiment is
// optional and defaults to 0.
var columnAliases = map[string]string{
	"timestamp": "timestamp",
	"date":      "timestamp",
	"datetime":  "timestamp",
	"time":      "timestamp",

	"open":  "open",
	"high":  "high",
	"low":   "low",
	"close": "close",

	"volume": "volume",
	"vol":    "volume",

	"sentiment":       "sentiment",
	"sentiment_score": "sentiment",
	"score":           "sentiment",
	"opinion":         "sentiment",
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// LoadCSV reads an OHLCV(+sentiment) CSV into a series. Rows are sorted
// by timestamp; duplicate timestamps are an error because the engine
// requires a strictly increasing series.
func LoadCSV(path, symbol string) (model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Series{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return model.Series{}, fmt.Errorf("reading header of %s: %w", path, err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return model.Series{}, fmt.Errorf("%s: %w", path, err)
	}

	var candles []model.Candle
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err != nil {
			break
		}
		c, err := parseRow(rec, cols)
		if err != nil {
			return model.Series{}, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		candles = append(candles, c)
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	series := model.Series{Symbol: symbol, Candles: candles}
	if err := series.Validate(); err != nil {
		return model.Series{}, err
	}
	return series, nil
}

// LoadCSVRange loads a file and keeps rows in [from, to). Zero bounds
// are open.
func LoadCSVRange(path, symbol string, from, to time.Time) (model.Series, error) {
	series, err := LoadCSV(path, symbol)
	if err != nil {
		return model.Series{}, err
	}
	kept := series.Candles[:0:0]
	for _, c := range series.Candles {
		if !from.IsZero() && c.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && !c.Timestamp.Before(to) {
			continue
		}
		kept = append(kept, c)
	}
	series.Candles = kept
	return series, nil
}

// MergeSentiment overlays per-date sentiment readings from a CSV with
// date and sentiment columns onto the series. Rows without a reading
// keep their current value; the price series drives, extra sentiment
// dates are dropped.
func MergeSentiment(series model.Series, path string) (model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Series{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return model.Series{}, fmt.Errorf("reading header of %s: %w", path, err)
	}

	dateIdx, sentIdx := -1, -1
	for i, h := range header {
		switch columnAliases[normalizeHeader(h)] {
		case "timestamp":
			dateIdx = i
		case "sentiment":
			sentIdx = i
		}
	}
	if dateIdx < 0 || sentIdx < 0 {
		return model.Series{}, fmt.Errorf("%s: need date and sentiment columns, got %v", path, header)
	}

	byDate := make(map[string]float64)
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		ts, err := parseTime(rec[dateIdx])
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[sentIdx]), 64)
		if err != nil {
			continue
		}
		byDate[ts.Format("2006-01-02")] = v
	}

	out := model.Series{Symbol: series.Symbol, Candles: append([]model.Candle(nil), series.Candles...)}
	for i := range out.Candles {
		if v, ok := byDate[out.Candles[i].Timestamp.Format("2006-01-02")]; ok {
			out.Candles[i].Sentiment = v
		}
	}
	return out, nil
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		if name, ok := columnAliases[normalizeHeader(h)]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	for _, required := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q (header %v)", required, header)
		}
	}
	return cols, nil
}

func parseRow(rec []string, cols map[string]int) (model.Candle, error) {
	ts, err := parseTime(rec[cols["timestamp"]])
	if err != nil {
		return model.Candle{}, err
	}
	c := model.Candle{Timestamp: ts}

	for name, dst := range map[string]*float64{
		"open":   &c.Open,
		"high":   &c.High,
		"low":    &c.Low,
		"close":  &c.Close,
		"volume": &c.Volume,
	} {
		v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[name]]), 64)
		if err != nil {
			return model.Candle{}, fmt.Errorf("column %s: %w", name, err)
		}
		*dst = v
	}

	if idx, ok := cols["sentiment"]; ok && idx < len(rec) {
		if v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64); err == nil {
			c.Sentiment = v
		}
	}
	return c, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	// Unix seconds as a last resort.
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}
