package strategy

import (
	"fmt"
	"strings"

	"cortex-backtest/internal/model"
)

// StatisticalParams tunes the indicator-only strategy:
// - SMA crossover: SMA(fast) above SMA(slow) is bullish, below is bearish
// - RSI: below RSIOversold leans buy, above RSIOverbought leans sell
// - Sentiment: added to the score scaled by SentimentWeight
// The signed contributions are summed and compared against +/-0.3.
type StatisticalParams struct {
	SMAFast         int
	SMASlow         int
	RSIPeriod       int
	RSIOversold     float64
	RSIOverbought   float64
	SentimentWeight float64
}

type StatisticalStrategy struct {
	Params StatisticalParams

	reasoning string
}

func NewStatisticalStrategy(p StatisticalParams) *StatisticalStrategy {
	if p.SMAFast <= 0 {
		p.SMAFast = 10
	}
	if p.SMASlow <= 0 {
		p.SMASlow = 30
	}
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = 14
	}
	if p.RSIOversold <= 0 {
		p.RSIOversold = 30.0
	}
	if p.RSIOverbought <= 0 {
		p.RSIOverbought = 70.0
	}
	if p.SentimentWeight == 0 {
		p.SentimentWeight = 0.3
	}
	return &StatisticalStrategy{Params: p}
}

func (s *StatisticalStrategy) Name() string { return "statistical" }

func (s *StatisticalStrategy) Decide(obs Observation) model.Action {
	if len(obs.Window) < s.Params.SMASlow {
		s.reasoning = "insufficient history for indicators"
		return model.ActionHold
	}

	closes := obs.Closes()
	smaFast := sma(closes, s.Params.SMAFast)
	smaSlow := sma(closes, s.Params.SMASlow)
	rsiVal := rsi(closes, s.Params.RSIPeriod)

	score := 0.0
	var reasons []string

	if smaFast > smaSlow {
		score += 0.4
		reasons = append(reasons, fmt.Sprintf("SMA%d(%.0f) > SMA%d(%.0f)", s.Params.SMAFast, smaFast, s.Params.SMASlow, smaSlow))
	} else if smaFast < smaSlow {
		score -= 0.4
		reasons = append(reasons, fmt.Sprintf("SMA%d(%.0f) < SMA%d(%.0f)", s.Params.SMAFast, smaFast, s.Params.SMASlow, smaSlow))
	}

	if rsiVal < s.Params.RSIOversold {
		score += 0.3
		reasons = append(reasons, fmt.Sprintf("RSI=%.0f oversold", rsiVal))
	} else if rsiVal > s.Params.RSIOverbought {
		score -= 0.3
		reasons = append(reasons, fmt.Sprintf("RSI=%.0f overbought", rsiVal))
	}

	if obs.Sentiment != 0 {
		score += obs.Sentiment * s.Params.SentimentWeight
		reasons = append(reasons, fmt.Sprintf("sentiment=%.2f", obs.Sentiment))
	}

	s.reasoning = strings.Join(reasons, " | ") + fmt.Sprintf(" | score=%.2f", score)

	if score > 0.3 && !obs.HasPosition() {
		s.reasoning += " | buy"
		return model.ActionBuy
	}
	if score < -0.3 && obs.HasPosition() {
		s.reasoning += " | sell"
		return model.ActionSell
	}
	s.reasoning += " | hold"
	return model.ActionHold
}

func (s *StatisticalStrategy) Reasoning() string { return s.reasoning }

func (s *StatisticalStrategy) Reset() { s.reasoning = "" }
