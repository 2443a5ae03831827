package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cortex-backtest/internal/data"
)

// gen-data writes seeded synthetic OHLCV+sentiment CSV fixtures into a
// data directory, one file per symbol, named the way the dataset loader
// expects (SYMBOL_interval.csv).
func main() {
	dir := flag.String("dir", "data", "Output directory")
	symbols := flag.String("symbols", "BTCUSDT,ETHUSDT,SOLUSDT", "Comma-separated symbols")
	interval := flag.String("interval", "1d", "Interval tag for the filename")
	rows := flag.Int("rows", 365, "Candles per symbol")
	seed := flag.Int64("seed", 1, "Base seed; each symbol offsets from it")
	flag.Parse()

	if err := run(*dir, *symbols, *interval, *rows, *seed); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(dir, symbols, interval string, rows int, seed int64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	step, err := intervalDuration(interval)
	if err != nil {
		return err
	}

	names := strings.Split(symbols, ",")
	for i, sym := range names {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		series := data.Synthetic(data.SyntheticParams{
			Symbol:     sym,
			Rows:       rows,
			Seed:       seed + int64(i),
			StartPrice: 100 * float64(i+1),
			Interval:   step,
		})
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", sym, interval))
		if err := data.WriteSeriesCSV(path, series); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		fmt.Printf("wrote %s (%d rows)\n", path, rows)
	}
	return nil
}

func intervalDuration(tag string) (time.Duration, error) {
	switch tag {
	case "1d":
		return 24 * time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1h":
		return time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown interval %q (known: 1d, 4h, 1h)", tag)
	}
}
