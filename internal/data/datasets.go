package data

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cortex-backtest/internal/model"
)

// DatasetInfo describes one loadable price file, for listings in the
// CLI and the API.
type DatasetInfo struct {
	ID       string    `json:"id"` // file stem, e.g. BTCUSDT_1h
	Symbol   string    `json:"symbol"`
	Interval string    `json:"interval"`
	Path     string    `json:"path"`
	Rows     int       `json:"rows"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// ListDatasets scans a directory for CSV price files named
// SYMBOL_INTERVAL.csv and summarizes each. Files that fail to load are
// skipped, not fatal; a sweep should not die on one bad file.
func ListDatasets(dir string) ([]DatasetInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir: %w", err)
	}

	var out []DatasetInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".csv")
		symbol, interval := splitDatasetID(id)
		path := filepath.Join(dir, e.Name())

		series, err := LoadCSV(path, symbol)
		if err != nil {
			continue
		}
		out = append(out, DatasetInfo{
			ID:       id,
			Symbol:   symbol,
			Interval: interval,
			Path:     path,
			Rows:     series.Len(),
			Start:    series.Start(),
			End:      series.End(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// LoadDataset loads a dataset by ID from the directory, merging a
// sentiment file of the same symbol from sentimentDir when present.
func LoadDataset(dir, sentimentDir, id string) (model.Series, error) {
	symbol, _ := splitDatasetID(id)
	series, err := LoadCSV(filepath.Join(dir, id+".csv"), symbol)
	if err != nil {
		return model.Series{}, err
	}
	if sentimentDir != "" {
		sentPath := filepath.Join(sentimentDir, symbol+".csv")
		if _, err := os.Stat(sentPath); err == nil {
			return MergeSentiment(series, sentPath)
		}
	}
	return series, nil
}

func splitDatasetID(id string) (symbol, interval string) {
	if i := strings.LastIndex(id, "_"); i > 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}
