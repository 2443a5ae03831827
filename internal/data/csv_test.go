package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadCSVNormalizesHeaders(t *testing.T) {
	path := writeFile(t, t.TempDir(), "btc.csv", `Date,Open,High,Low,Close,Vol,Sentiment
2024-01-01,100,105,95,102,5000,0.3
2024-01-02,102,110,101,108,6000,-0.1
`)
	series, err := LoadCSV(path, "BTCUSDT")
	require.NoError(t, err)

	require.Equal(t, 2, series.Len())
	assert.Equal(t, "BTCUSDT", series.Symbol)
	c := series.Candles[0]
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), c.Timestamp)
	assert.Equal(t, 100.0, c.Open)
	assert.Equal(t, 102.0, c.Close)
	assert.Equal(t, 5000.0, c.Volume)
	assert.Equal(t, 0.3, c.Sentiment)
}

func TestLoadCSVMissingSentimentDefaultsToZero(t *testing.T) {
	path := writeFile(t, t.TempDir(), "x.csv", `timestamp,open,high,low,close,volume
2024-01-01T00:00:00Z,1,1,1,1,10
2024-01-02T00:00:00Z,1,1,1,1,10
`)
	series, err := LoadCSV(path, "X")
	require.NoError(t, err)
	assert.Zero(t, series.Candles[0].Sentiment)
}

func TestLoadCSVSortsAndRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()

	unsorted := writeFile(t, dir, "unsorted.csv", `date,open,high,low,close,volume
2024-01-02,1,1,1,2,10
2024-01-01,1,1,1,1,10
`)
	series, err := LoadCSV(unsorted, "X")
	require.NoError(t, err)
	assert.Equal(t, 1.0, series.Candles[0].Close)

	dup := writeFile(t, dir, "dup.csv", `date,open,high,low,close,volume
2024-01-01,1,1,1,1,10
2024-01-01,1,1,1,2,10
`)
	_, err = LoadCSV(dup, "X")
	assert.Error(t, err)
}

func TestLoadCSVMissingColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.csv", `date,open,high,low,volume
2024-01-01,1,1,1,10
`)
	_, err := LoadCSV(path, "X")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close")
}

func TestLoadCSVRange(t *testing.T) {
	path := writeFile(t, t.TempDir(), "r.csv", `date,open,high,low,close,volume
2024-01-01,1,1,1,1,10
2024-01-02,1,1,1,2,10
2024-01-03,1,1,1,3,10
2024-01-04,1,1,1,4,10
`)
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
	series, err := LoadCSVRange(path, "X", from, to)
	require.NoError(t, err)
	require.Equal(t, 2, series.Len())
	assert.Equal(t, 2.0, series.Candles[0].Close)
	assert.Equal(t, 3.0, series.Candles[1].Close)
}

func TestMergeSentiment(t *testing.T) {
	dir := t.TempDir()
	prices := writeFile(t, dir, "p.csv", `date,open,high,low,close,volume
2024-01-01,1,1,1,1,10
2024-01-02,1,1,1,2,10
2024-01-03,1,1,1,3,10
`)
	sentiment := writeFile(t, dir, "s.csv", `date,sentiment_score
2024-01-02,0.8
2024-01-09,0.5
`)

	series, err := LoadCSV(prices, "X")
	require.NoError(t, err)
	merged, err := MergeSentiment(series, sentiment)
	require.NoError(t, err)

	assert.Zero(t, merged.Candles[0].Sentiment, "no reading for the date")
	assert.Equal(t, 0.8, merged.Candles[1].Sentiment)
	assert.Zero(t, merged.Candles[2].Sentiment)
	// Source series untouched.
	assert.Zero(t, series.Candles[1].Sentiment)
}

func TestSyntheticIsSeededAndLoadable(t *testing.T) {
	a := Synthetic(SyntheticParams{Symbol: "SYN", Rows: 50, Seed: 42})
	b := Synthetic(SyntheticParams{Symbol: "SYN", Rows: 50, Seed: 42})
	c := Synthetic(SyntheticParams{Symbol: "SYN", Rows: 50, Seed: 7})

	require.NoError(t, a.Validate())
	assert.Equal(t, a, b, "same seed, same series")
	assert.NotEqual(t, a.Candles[10].Close, c.Candles[10].Close)

	for _, candle := range a.Candles {
		assert.GreaterOrEqual(t, candle.High, candle.Low)
		assert.GreaterOrEqual(t, candle.Sentiment, -1.0)
		assert.LessOrEqual(t, candle.Sentiment, 1.0)
	}

	// Round trip through the CSV layer.
	path := filepath.Join(t.TempDir(), "SYN_1d.csv")
	require.NoError(t, WriteSeriesCSV(path, a))
	loaded, err := LoadCSV(path, "SYN")
	require.NoError(t, err)
	require.Equal(t, a.Len(), loaded.Len())
	assert.InDelta(t, a.Candles[10].Close, loaded.Candles[10].Close, 1e-6)
}

func TestListDatasets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteSeriesCSV(filepath.Join(dir, "BTCUSDT_1d.csv"),
		Synthetic(SyntheticParams{Symbol: "BTCUSDT", Rows: 30, Seed: 1})))
	require.NoError(t, WriteSeriesCSV(filepath.Join(dir, "ETHUSDT_1d.csv"),
		Synthetic(SyntheticParams{Symbol: "ETHUSDT", Rows: 20, Seed: 2})))
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "broken.csv", "not,a,price,file\n1,2,3,4\n")

	infos, err := ListDatasets(dir)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "BTCUSDT_1d", infos[0].ID)
	assert.Equal(t, "BTCUSDT", infos[0].Symbol)
	assert.Equal(t, "1d", infos[0].Interval)
	assert.Equal(t, 30, infos[0].Rows)

	loaded, err := LoadDataset(dir, "", "ETHUSDT_1d")
	require.NoError(t, err)
	assert.Equal(t, 20, loaded.Len())
}
