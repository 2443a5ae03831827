package backtest

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

// WriteStepCSV dumps the step log to a CSV file, one row per step.
func WriteStepCSV(path string, steps []StepRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"index",
		"timestamp",
		"action",
		"price",
		"portfolio_value",
		"cash",
		"position_qty",
		"reward",
		"score",
		"hold_penalty",
		"sentiment",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range steps {
		row := []string{
			strconv.Itoa(r.Index),
			fmtTime(r.Timestamp),
			r.Action.String(),
			fmtFloat(r.Price),
			fmtFloat(r.PortfolioValue),
			fmtFloat(r.Cash),
			fmtFloat(r.PositionQty),
			fmtFloat(r.Reward),
			fmtFloat(r.Score),
			fmtFloat(r.HoldPenalty),
			fmtFloat(r.Sentiment),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
