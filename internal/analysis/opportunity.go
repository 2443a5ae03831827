package analysis

import (
	"math"
	"sort"
	"time"

	"cortex-backtest/internal/model"
)

// MarketPotential is a per-symbol summary used to rank instruments by
// how much edge there is to extract. It intentionally does not depend on
// a specific strategy; it includes raw price stats plus an "oracle"
// profit for a canonical $100 account.
type MarketPotential struct {
	Symbol string    `json:"symbol"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Count  int       `json:"count"`

	MinClose  float64 `json:"min_close"`
	MaxClose  float64 `json:"max_close"`
	MeanClose float64 `json:"mean_close"`

	// Percentiles of per-step returns; the spread between them is a
	// strategy-free volatility measure.
	P05Return    float64 `json:"p05_return"`
	P95Return    float64 `json:"p95_return"`
	SpreadP95P05 float64 `json:"spread_p95_p05"`

	// OracleProfit is the profit ($) from a canonical account:
	// - $100 initial capital, full reinvestment every round trip
	// - default fee (0.001) and slippage (0.0005)
	// - perfect foresight over the close series
	OracleProfit float64 `json:"oracle_profit"`
}

// Canonical cost model for the oracle-profit upper bound.
const (
	canonicalCapital  = 100.0
	canonicalFeeRate  = 0.001
	canonicalSlippage = 0.0005
)

func ComputePotential(s model.Series) MarketPotential {
	p := MarketPotential{Symbol: s.Symbol}
	if s.Len() == 0 {
		return p
	}
	p.Count = s.Len()
	p.Start = s.Start()
	p.End = s.End()

	closes := s.Closes()
	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	for _, v := range closes {
		sum += v
		if v < minv {
			minv = v
		}
		if v > maxv {
			maxv = v
		}
	}
	p.MinClose = minv
	p.MaxClose = maxv
	p.MeanClose = sum / float64(len(closes))

	rets := append([]float64(nil), s.Returns()...)
	sort.Float64s(rets)
	p.P05Return = percentileSorted(rets, 0.05)
	p.P95Return = percentileSorted(rets, 0.95)
	p.SpreadP95P05 = p.P95Return - p.P05Return

	p.OracleProfit = oracleProfitCanonical(closes, canonicalFeeRate, canonicalSlippage)
	return p
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// oracleProfitCanonical computes an upper bound on extractable profit
// with a two-state DP: at every close the account is either all in cash
// or all in the asset, and transitions pay the fee and slippage of the
// ledger's execution model. O(n), no discretization needed.
func oracleProfitCanonical(closes []float64, feeRate, slippage float64) float64 {
	if len(closes) == 0 {
		return 0
	}

	bestCash := canonicalCapital
	bestHeld := 0.0 // units of the asset

	for _, price := range closes {
		if price <= 0 {
			continue
		}
		buyQty := bestCash * (1 - feeRate) / (price * (1 + slippage))
		sellCash := bestHeld * price * (1 - slippage) * (1 - feeRate)
		if buyQty > bestHeld {
			bestHeld = buyQty
		}
		if sellCash > bestCash {
			bestCash = sellCash
		}
	}
	return bestCash - canonicalCapital
}

type RankedPotential struct {
	MarketPotential
}

// RankByOracleProfit computes potentials per symbol and sorts descending
// by OracleProfit.
func RankByOracleProfit(bySymbol map[string]model.Series) []RankedPotential {
	out := make([]RankedPotential, 0, len(bySymbol))
	for _, s := range bySymbol {
		out = append(out, RankedPotential{MarketPotential: ComputePotential(s)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OracleProfit > out[j].OracleProfit
	})
	return out
}
