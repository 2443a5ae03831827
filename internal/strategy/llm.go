package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"cortex-backtest/internal/cache"
	"cortex-backtest/internal/model"
	"cortex-backtest/internal/provider"
)

// Analyzer is the slice of the provider client this package needs.
type Analyzer interface {
	Analyze(ctx context.Context, snap provider.Snapshot) (provider.Signal, error)
}

const llmCacheTTL = 24 * time.Hour

// LLMParams configures the two-tier strategy. With no Analyzer it runs
// fully offline, deriving the slow signal from precomputed sentiment.
type LLMParams struct {
	Interval int // steps between analyzer consultations
	Analyzer Analyzer
	Cache    cache.Cache
}

// LLMStrategy consults a language-model analyzer every Interval steps
// for a market stance and trades fast indicators in between. Analyzer
// responses are cached by market snapshot so reruns over the same data
// do not repeat calls.
type LLMStrategy struct {
	Params LLMParams

	stepCount      int
	lastStance     provider.Stance
	lastConfidence float64
	reasoning      string
}

func NewLLMStrategy(p LLMParams) *LLMStrategy {
	if p.Interval <= 0 {
		p.Interval = 24
	}
	return &LLMStrategy{Params: p, lastStance: provider.StanceNeutral}
}

func (s *LLMStrategy) Name() string { return "llm" }

func (s *LLMStrategy) Decide(obs Observation) model.Action {
	s.stepCount++

	if len(obs.Window) < 10 {
		s.reasoning = "insufficient history"
		return model.ActionHold
	}

	if s.stepCount%s.Params.Interval == 1 {
		s.analyze(obs)
	}

	closes := obs.Closes()
	sma10 := obs.CurrentPrice
	if len(closes) >= 10 {
		sma10 = sma(closes, 10)
	}
	priceVsSMA := 0.0
	if sma10 > 0 {
		priceVsSMA = (obs.CurrentPrice - sma10) / sma10
	}

	base := fmt.Sprintf("analyzer=%s(%.0f%%) | sentiment=%.2f", s.lastStance, s.lastConfidence*100, obs.Sentiment)

	switch {
	case s.lastStance == provider.StanceBullish && s.lastConfidence > 0.5:
		if !obs.HasPosition() {
			s.reasoning = base + " | buy"
			return model.ActionBuy
		}
	case s.lastStance == provider.StanceBearish && s.lastConfidence > 0.5:
		if obs.HasPosition() {
			s.reasoning = base + " | sell"
			return model.ActionSell
		}
	case s.lastStance == provider.StanceNeutral:
		// In a neutral regime trade the deviation from the fast SMA.
		if priceVsSMA > 0.03 && obs.HasPosition() {
			s.reasoning = fmt.Sprintf("neutral, price %.1f%% above SMA10: sell", priceVsSMA*100)
			return model.ActionSell
		}
		if priceVsSMA < -0.03 && !obs.HasPosition() {
			s.reasoning = fmt.Sprintf("neutral, price %.1f%% below SMA10: buy", priceVsSMA*100)
			return model.ActionBuy
		}
	}

	s.reasoning = base + " | hold"
	return model.ActionHold
}

func (s *LLMStrategy) analyze(obs Observation) {
	if s.Params.Analyzer == nil {
		s.analyzeOffline(obs)
		return
	}

	ctx := context.Background()
	closes := obs.Closes()
	snap := provider.Snapshot{
		CurrentPrice: obs.CurrentPrice,
		Sentiment:    obs.Sentiment,
	}
	if n := len(closes); n > 1 {
		snap.Change1Pct = pctChange(closes[n-2], closes[n-1]) * 100
	}
	if n := len(closes); n > 7 {
		snap.Change7Pct = pctChange(closes[n-7], closes[n-1]) * 100
	}

	cacheKey := fmt.Sprintf("%.0f_%.2f", obs.CurrentPrice, obs.Sentiment)
	if s.Params.Cache != nil {
		if raw, ok, err := s.Params.Cache.Get(ctx, cacheKey); err == nil && ok {
			var sig provider.Signal
			if json.Unmarshal([]byte(raw), &sig) == nil {
				s.lastStance = sig.Stance
				s.lastConfidence = sig.Confidence
				return
			}
		}
	}

	sig, err := s.Params.Analyzer.Analyze(ctx, snap)
	if err != nil {
		log.Warn().Err(err).Msg("analyzer call failed, using offline signal")
		s.analyzeOffline(obs)
		return
	}
	s.lastStance = sig.Stance
	s.lastConfidence = sig.Confidence

	if s.Params.Cache != nil {
		if raw, err := json.Marshal(sig); err == nil {
			if err := s.Params.Cache.Set(ctx, cacheKey, string(raw), llmCacheTTL); err != nil {
				log.Debug().Err(err).Msg("failed to cache analyzer response")
			}
		}
	}
}

// analyzeOffline blends precomputed sentiment with the five-candle
// trend, standing in for the analyzer when none is wired or it fails.
func (s *LLMStrategy) analyzeOffline(obs Observation) {
	closes := obs.Closes()
	recentReturn := 0.0
	if len(closes) >= 5 {
		recentReturn = pctChange(closes[len(closes)-5], closes[len(closes)-1])
	}
	trend := -1.0
	if recentReturn > 0 {
		trend = 1.0
	}
	combined := obs.Sentiment*0.6 + trend*0.4

	switch {
	case combined > 0.2:
		s.lastStance = provider.StanceBullish
		s.lastConfidence = math.Min(math.Abs(combined), 1.0)
	case combined < -0.2:
		s.lastStance = provider.StanceBearish
		s.lastConfidence = math.Min(math.Abs(combined), 1.0)
	default:
		s.lastStance = provider.StanceNeutral
		s.lastConfidence = 0.3
	}
}

func (s *LLMStrategy) Reasoning() string { return s.reasoning }

func (s *LLMStrategy) Reset() {
	s.stepCount = 0
	s.lastStance = provider.StanceNeutral
	s.lastConfidence = 0
	s.reasoning = ""
}
