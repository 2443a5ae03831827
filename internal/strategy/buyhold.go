package strategy

import "cortex-backtest/internal/model"

// BuyHoldStrategy buys on the first step and never trades again. It is
// the benchmark every other strategy has to beat.
type BuyHoldStrategy struct {
	bought    bool
	reasoning string
}

func NewBuyHoldStrategy() *BuyHoldStrategy { return &BuyHoldStrategy{} }

func (s *BuyHoldStrategy) Name() string { return "buyhold" }

func (s *BuyHoldStrategy) Decide(obs Observation) model.Action {
	if !s.bought {
		s.bought = true
		s.reasoning = "first step: buy and hold"
		return model.ActionBuy
	}
	s.reasoning = "holding"
	return model.ActionHold
}

func (s *BuyHoldStrategy) Reasoning() string { return s.reasoning }

func (s *BuyHoldStrategy) Reset() {
	s.bought = false
	s.reasoning = ""
}
