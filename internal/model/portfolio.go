package model

import (
	"errors"
	"time"
)

// PortfolioParams defines the execution-cost model of the simulated venue.
// Units:
// - InitialCapital: account currency (USD)
// - FeeRate: fraction of traded value charged per fill (0.001 = 10 bps)
// - Slippage: fractional adverse price move applied at execution, on both sides
type PortfolioParams struct {
	InitialCapital float64
	FeeRate        float64
	Slippage       float64
}

func (p PortfolioParams) Validate() error {
	if p.InitialCapital <= 0 {
		return errors.New("InitialCapital must be > 0")
	}
	if p.FeeRate < 0 || p.FeeRate >= 1 {
		return errors.New("FeeRate must be in [0, 1)")
	}
	if p.Slippage < 0 || p.Slippage >= 1 {
		return errors.New("Slippage must be in [0, 1)")
	}
	return nil
}

// Side labels a fill as a buy or a sell.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// MinNotional is the smallest order value (USD) that produces a fill.
const MinNotional = 0.01

// DustQty is the quantity below which a position counts as closed.
const DustQty = 1e-10

// Position is one instrument's open exposure. AvgEntryPrice is the
// weighted average cost per unit; TotalInvested is the cost basis of the
// currently open quantity (net of entry fees).
type Position struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AvgEntryPrice float64 `json:"avg_entry_price"`
	TotalInvested float64 `json:"total_invested"`
}

// IsOpen reports whether the position holds more than dust.
func (p Position) IsOpen() bool {
	return p.Quantity > DustQty
}

// ValueAt returns the market value of the position at the given price.
func (p Position) ValueAt(price float64) float64 {
	return p.Quantity * price
}

// UnrealizedPnL returns the mark-to-market gain over the average entry.
func (p Position) UnrealizedPnL(price float64) float64 {
	if !p.IsOpen() {
		return 0
	}
	return (price - p.AvgEntryPrice) * p.Quantity
}

// Fill is an immutable record of one executed trade.
// TotalCost is the full cash moved: the USD spent on a BUY (fee included),
// the net USD received on a SELL (fee deducted).
type Fill struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Quantity  float64   `json:"quantity"`
	Price     float64   `json:"price"` // execution price, post-slippage
	Fee       float64   `json:"fee"`
	TotalCost float64   `json:"total_cost"`
}

// Portfolio owns cash and per-instrument positions under a simplified
// single-venue execution model with deterministic fee and slippage.
// It is a pure state machine: no I/O, no clock, no locking. Callers that
// need concurrency run one Portfolio per goroutine.
type Portfolio struct {
	Params      PortfolioParams
	Cash        float64
	Positions   map[string]*Position
	Trades      []Fill
	RealizedPnL float64
}

// NewPortfolio validates params and returns a portfolio holding the
// initial capital in cash.
func NewPortfolio(params PortfolioParams) (*Portfolio, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	p := &Portfolio{Params: params}
	p.Reset()
	return p, nil
}

// Reset restores the initial state: full cash, no positions, no history.
func (p *Portfolio) Reset() {
	p.Cash = p.Params.InitialCapital
	p.Positions = make(map[string]*Position)
	p.Trades = nil
	p.RealizedPnL = 0
}

// Buy spends up to usdAmount of cash on the instrument at marketPrice.
// The amount is clamped to available cash; the fee comes out of the
// invested amount, not on top of it. Returns nil (no fill) when the
// affordable amount is below MinNotional. A nil return is not an error.
func (p *Portfolio) Buy(symbol string, usdAmount, marketPrice float64, ts time.Time) *Fill {
	if usdAmount <= 0 {
		return nil
	}
	if usdAmount > p.Cash {
		usdAmount = p.Cash
	}
	if usdAmount < MinNotional {
		return nil
	}

	// Buying lifts the price against us.
	executionPrice := marketPrice * (1 + p.Params.Slippage)
	fee := usdAmount * p.Params.FeeRate
	effectiveUSD := usdAmount - fee
	quantity := effectiveUSD / executionPrice

	p.Cash -= usdAmount

	pos, ok := p.Positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		p.Positions[symbol] = pos
	}
	totalQty := pos.Quantity + quantity
	if totalQty > 0 {
		pos.AvgEntryPrice = (pos.AvgEntryPrice*pos.Quantity + executionPrice*quantity) / totalQty
	}
	pos.Quantity = totalQty
	pos.TotalInvested += effectiveUSD

	fill := Fill{
		Timestamp: ts,
		Symbol:    symbol,
		Side:      SideBuy,
		Quantity:  quantity,
		Price:     executionPrice,
		Fee:       fee,
		TotalCost: usdAmount,
	}
	p.Trades = append(p.Trades, fill)
	return &fill
}

// Sell disposes of up to quantity units at marketPrice. The quantity is
// clamped to the open position. Returns nil when there is no open
// position or the clamped quantity is dust.
func (p *Portfolio) Sell(symbol string, quantity, marketPrice float64, ts time.Time) *Fill {
	pos, ok := p.Positions[symbol]
	if !ok || !pos.IsOpen() {
		return nil
	}

	if quantity > pos.Quantity {
		quantity = pos.Quantity
	}
	if quantity < DustQty {
		return nil
	}

	// Selling pushes the price against us.
	executionPrice := marketPrice * (1 - p.Params.Slippage)
	grossValue := quantity * executionPrice
	fee := grossValue * p.Params.FeeRate
	netValue := grossValue - fee

	costBasis := pos.AvgEntryPrice * quantity
	p.RealizedPnL += netValue - costBasis
	p.Cash += netValue

	pos.Quantity -= quantity
	if pos.Quantity < DustQty {
		pos.Quantity = 0
		pos.AvgEntryPrice = 0
		pos.TotalInvested = 0
	}

	fill := Fill{
		Timestamp: ts,
		Symbol:    symbol,
		Side:      SideSell,
		Quantity:  quantity,
		Price:     executionPrice,
		Fee:       fee,
		TotalCost: netValue,
	}
	p.Trades = append(p.Trades, fill)
	return &fill
}

// SellAll liquidates the entire open position in the instrument.
func (p *Portfolio) SellAll(symbol string, marketPrice float64, ts time.Time) *Fill {
	pos, ok := p.Positions[symbol]
	if !ok {
		return nil
	}
	return p.Sell(symbol, pos.Quantity, marketPrice, ts)
}

// Position returns a copy of the instrument's position, zero-valued if
// none exists.
func (p *Portfolio) Position(symbol string) Position {
	if pos, ok := p.Positions[symbol]; ok {
		return *pos
	}
	return Position{Symbol: symbol}
}

// Value returns cash plus the market value of every open position with a
// supplied price. Positions with no price in the map are excluded; the
// caller is responsible for pricing everything it holds.
func (p *Portfolio) Value(currentPrices map[string]float64) float64 {
	total := p.Cash
	for symbol, pos := range p.Positions {
		price, ok := currentPrices[symbol]
		if pos.IsOpen() && ok {
			total += pos.ValueAt(price)
		}
	}
	return total
}

// UnrealizedPnL sums mark-to-market gains over all priced open positions.
func (p *Portfolio) UnrealizedPnL(currentPrices map[string]float64) float64 {
	total := 0.0
	for symbol, pos := range p.Positions {
		price, ok := currentPrices[symbol]
		if pos.IsOpen() && ok {
			total += pos.UnrealizedPnL(price)
		}
	}
	return total
}
