package strategy

import (
	"fmt"
	"math"

	"cortex-backtest/internal/model"
)

// ContrarianParams tunes the manipulation-fading strategy:
// 1. Detect a one-candle price spike on abnormally high volume
// 2. Call it manipulation when sentiment is extreme in the spike's
//    direction, or volume alone is far beyond normal
// 3. Trade against it: buy the dump, sit out the pump
// 4. Exit on stop-loss, on reversal capture, or after MaxHoldPeriods
type ContrarianParams struct {
	PriceSpikeThreshold float64 // one-candle move, 0.03 = 3%
	VolumeMultiplier    float64 // spike volume vs trailing average
	SentimentExtreme    float64 // |sentiment| above this is extreme
	MaxHoldPeriods      int
	StopLossPct         float64
}

type ContrarianStrategy struct {
	Params ContrarianParams

	entryPrice  float64
	holdCounter int
	reasoning   string
}

type spikeInfo struct {
	pctChange   float64
	volumeRatio float64
	up          bool
}

func NewContrarianStrategy(p ContrarianParams) *ContrarianStrategy {
	if p.PriceSpikeThreshold <= 0 {
		p.PriceSpikeThreshold = 0.03
	}
	if p.VolumeMultiplier <= 0 {
		p.VolumeMultiplier = 3.0
	}
	if p.SentimentExtreme <= 0 {
		p.SentimentExtreme = 0.5
	}
	if p.MaxHoldPeriods <= 0 {
		p.MaxHoldPeriods = 5
	}
	if p.StopLossPct <= 0 {
		p.StopLossPct = 0.03
	}
	return &ContrarianStrategy{Params: p}
}

func (s *ContrarianStrategy) Name() string { return "contrarian" }

func (s *ContrarianStrategy) Decide(obs Observation) model.Action {
	if len(obs.Window) < 10 {
		s.reasoning = "insufficient history"
		return model.ActionHold
	}

	price := obs.CurrentPrice

	if obs.HasPosition() {
		s.holdCounter++
		pnlPct := pctChange(s.entryPrice, price)

		if pnlPct <= -s.Params.StopLossPct {
			s.reasoning = fmt.Sprintf("contrarian stop-loss: pnl=%.1f%%", pnlPct*100)
			s.resetPosition()
			return model.ActionSell
		}
		// Time exit so a failed reversal cannot trap the position.
		if s.holdCounter >= s.Params.MaxHoldPeriods {
			s.reasoning = fmt.Sprintf("contrarian time-exit after %d periods, pnl=%.1f%%", s.holdCounter, pnlPct*100)
			s.resetPosition()
			return model.ActionSell
		}
		if pnlPct >= s.Params.PriceSpikeThreshold {
			s.reasoning = fmt.Sprintf("contrarian take-profit: reversal captured, pnl=%.1f%%", pnlPct*100)
			s.resetPosition()
			return model.ActionSell
		}

		s.reasoning = fmt.Sprintf("contrarian hold (%d/%d), pnl=%.1f%%", s.holdCounter, s.Params.MaxHoldPeriods, pnlPct*100)
		return model.ActionHold
	}

	spike, ok := s.detectSpike(obs.Closes(), obs.Volumes())
	if !ok {
		s.reasoning = "no anomaly detected"
		return model.ActionHold
	}

	if !s.isManipulation(spike, obs.Sentiment) {
		s.reasoning = fmt.Sprintf("spike without manipulation signs: move=%.1f%%, volume=%.1fx", spike.pctChange*100, spike.volumeRatio)
		return model.ActionHold
	}

	if spike.up {
		// The crowd is buying the pump. Shorting is not available here,
		// so the best contrarian move is to stay out.
		s.reasoning = fmt.Sprintf("pump detected (%.1f%%, sentiment=%.2f): staying out, waiting for reversal", spike.pctChange*100, obs.Sentiment)
		return model.ActionHold
	}

	s.reasoning = fmt.Sprintf("dump detected (%.1f%%, sentiment=%.2f): buying against the panic", spike.pctChange*100, obs.Sentiment)
	s.entryPrice = price
	s.holdCounter = 0
	return model.ActionBuy
}

// detectSpike flags a one-candle move at or beyond the threshold backed
// by volume at or beyond the multiplier of the trailing average. Both
// look at the window only, not the current candle.
func (s *ContrarianStrategy) detectSpike(closes, volumes []float64) (spikeInfo, bool) {
	if len(closes) < 5 {
		return spikeInfo{}, false
	}

	pct := pctChange(closes[len(closes)-2], closes[len(closes)-1])

	// Trailing average excludes the spike candle itself.
	var avgVolume float64
	if len(volumes) > 20 {
		avgVolume = meanOf(volumes[len(volumes)-20 : len(volumes)-1])
	} else {
		avgVolume = meanOf(volumes[:len(volumes)-1])
	}
	volumeRatio := 1.0
	if avgVolume > 0 {
		volumeRatio = volumes[len(volumes)-1] / avgVolume
	}

	info := spikeInfo{pctChange: pct, volumeRatio: volumeRatio, up: pct > 0}
	ok := math.Abs(pct) >= s.Params.PriceSpikeThreshold && volumeRatio >= s.Params.VolumeMultiplier
	return info, ok
}

// isManipulation judges whether a detected spike looks engineered:
// extreme sentiment aligned with the move, or volume far beyond even
// the spike threshold.
func (s *ContrarianStrategy) isManipulation(spike spikeInfo, sentiment float64) bool {
	if spike.pctChange > 0 && sentiment > s.Params.SentimentExtreme {
		return true
	}
	if spike.pctChange < 0 && sentiment < -s.Params.SentimentExtreme {
		return true
	}
	return spike.volumeRatio > s.Params.VolumeMultiplier*2
}

func (s *ContrarianStrategy) resetPosition() {
	s.entryPrice = 0
	s.holdCounter = 0
}

func (s *ContrarianStrategy) Reasoning() string { return s.reasoning }

func (s *ContrarianStrategy) Reset() {
	s.resetPosition()
	s.reasoning = ""
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
