package strategy

import (
	"fmt"

	"cortex-backtest/internal/model"
)

// OracleStrategy is a profit-maximizing "perfect foresight" strategy.
// It computes a full action plan up front with dynamic programming over
// the close series: at every step the account is either all in cash or
// all in the asset, and each transition pays the exchange's fee and
// slippage.
//
// Notes:
// - This is a ranking tool and an upper bound, not a tradable strategy.
// - While long the plan keeps emitting BUY so remaining cash tops up
//   the position; while flat it emits SELL, which the exchange treats
//   as a no-op and which never incurs the idle-cash penalty.
// - The two-state account is exact for the plan's own cost model; the
//   engine's fractional position sizing realizes slightly less than
//   the planned bound.
type OracleStrategy struct {
	plan      []model.Action
	reasoning string
}

func NewOracleStrategy() *OracleStrategy { return &OracleStrategy{} }

func (s *OracleStrategy) Name() string { return "oracle" }

// Prime builds the plan for the whole run. The runner calls it once
// before the first Decide.
func (s *OracleStrategy) Prime(rc RunContext) error {
	closes := rc.Series.Closes()
	first := rc.WindowSize
	last := len(closes) - 2
	if first < 0 || first > last {
		return fmt.Errorf("series too short for window %d: %d candles", rc.WindowSize, len(closes))
	}

	capital := rc.Costs.InitialCapital
	if capital <= 0 {
		capital = 1
	}
	feeRate := rc.Costs.FeeRate
	slippage := rc.Costs.Slippage

	n := last - first + 1
	boughtAt := make([]bool, n)
	soldAt := make([]bool, n)

	// cash is the best flat account, asset the best long one (in units).
	// asset < 0 marks the long state as not yet reachable.
	cash := capital
	asset := -1.0
	for i := 0; i < n; i++ {
		price := closes[first+i]
		if price <= 0 {
			continue
		}
		newCash := cash
		if asset >= 0 {
			if c := asset * price * (1 - slippage) * (1 - feeRate); c > newCash {
				newCash = c
				soldAt[i] = true
			}
		}
		newAsset := asset
		if q := cash * (1 - feeRate) / (price * (1 + slippage)); q > newAsset {
			newAsset = q
			boughtAt[i] = true
		}
		cash, asset = newCash, newAsset
	}

	// Ending long is valued at the last acted close, the way the engine
	// marks open positions.
	long := asset >= 0 && asset*closes[last] > cash

	plan := make([]model.Action, len(closes))
	for i := n - 1; i >= 0; i-- {
		if long {
			plan[first+i] = model.ActionBuy
		} else {
			plan[first+i] = model.ActionSell
		}
		if long && boughtAt[i] {
			long = false
		} else if !long && soldAt[i] {
			long = true
		}
	}

	s.plan = plan
	return nil
}

func (s *OracleStrategy) Decide(obs Observation) model.Action {
	if obs.Step < 0 || obs.Step >= len(s.plan) {
		s.reasoning = "no plan for this step"
		return model.ActionHold
	}
	action := s.plan[obs.Step]
	switch action {
	case model.ActionBuy:
		s.reasoning = "plan: be long"
	case model.ActionSell:
		s.reasoning = "plan: be flat"
	default:
		s.reasoning = "plan: idle"
	}
	return action
}

func (s *OracleStrategy) Reasoning() string { return s.reasoning }

func (s *OracleStrategy) Reset() { s.reasoning = "" }
