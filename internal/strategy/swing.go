package strategy

import (
	"fmt"

	"cortex-backtest/internal/model"
)

// SwingParams tunes the trend-following strategy:
// - Enter when price is above SMA(period) with supportive sentiment,
//   or on a bounce off the SMA from just below
// - Exit on stop-loss, take-profit, or a close below 98% of the SMA
type SwingParams struct {
	SMAPeriod          int
	StopLossPct        float64 // magnitude, 0.05 = exit at -5%
	TakeProfitPct      float64 // magnitude, 0.10 = exit at +10%
	SentimentThreshold float64
}

type SwingStrategy struct {
	Params SwingParams

	entryPrice float64
	reasoning  string
}

func NewSwingStrategy(p SwingParams) *SwingStrategy {
	if p.SMAPeriod <= 0 {
		p.SMAPeriod = 20
	}
	if p.StopLossPct <= 0 {
		p.StopLossPct = 0.05
	}
	if p.TakeProfitPct <= 0 {
		p.TakeProfitPct = 0.10
	}
	if p.SentimentThreshold == 0 {
		p.SentimentThreshold = 0.1
	}
	return &SwingStrategy{Params: p}
}

func (s *SwingStrategy) Name() string { return "swing" }

func (s *SwingStrategy) Decide(obs Observation) model.Action {
	if len(obs.Window) < s.Params.SMAPeriod {
		s.reasoning = "insufficient history"
		return model.ActionHold
	}

	price := obs.CurrentPrice
	smaVal := sma(obs.Closes(), s.Params.SMAPeriod)

	if obs.HasPosition() && s.entryPrice > 0 {
		pnlPct := (price - s.entryPrice) / s.entryPrice

		if pnlPct <= -s.Params.StopLossPct {
			s.reasoning = fmt.Sprintf("stop-loss: pnl=%.1f%%", pnlPct*100)
			s.entryPrice = 0
			return model.ActionSell
		}
		if pnlPct >= s.Params.TakeProfitPct {
			s.reasoning = fmt.Sprintf("take-profit: pnl=%.1f%%", pnlPct*100)
			s.entryPrice = 0
			return model.ActionSell
		}
		// Close below the SMA band means the trend is gone.
		if price < smaVal*0.98 {
			s.reasoning = fmt.Sprintf("price %.0f below SMA%d %.0f, trend broken", price, s.Params.SMAPeriod, smaVal)
			s.entryPrice = 0
			return model.ActionSell
		}
	}

	if !obs.HasPosition() {
		if price > smaVal && obs.Sentiment >= s.Params.SentimentThreshold {
			s.reasoning = fmt.Sprintf("entry: price %.0f > SMA%d %.0f, sentiment=%.2f", price, s.Params.SMAPeriod, smaVal, obs.Sentiment)
			s.entryPrice = price
			return model.ActionBuy
		}
		// Bounce off the SMA acting as support.
		if 0.98*smaVal <= price && price <= 1.01*smaVal && obs.Sentiment > 0 {
			s.reasoning = fmt.Sprintf("bounce off SMA%d: price %.0f near %.0f", s.Params.SMAPeriod, price, smaVal)
			s.entryPrice = price
			return model.ActionBuy
		}
	}

	s.reasoning = fmt.Sprintf("hold | price=%.0f | SMA%d=%.0f | sentiment=%.2f", price, s.Params.SMAPeriod, smaVal, obs.Sentiment)
	return model.ActionHold
}

func (s *SwingStrategy) Reasoning() string { return s.reasoning }

func (s *SwingStrategy) Reset() {
	s.entryPrice = 0
	s.reasoning = ""
}
