package backtest

import (
	"errors"
	"fmt"

	"cortex-backtest/internal/model"
	"cortex-backtest/internal/strategy"
)

// Phase is the engine lifecycle state.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseActive
	PhaseTerminal
)

var (
	// ErrNotActive is returned by Step before the first Reset.
	ErrNotActive = errors.New("engine not active, call Reset first")
	// ErrDone is returned by Step after the episode has terminated.
	ErrDone = errors.New("episode finished, call Reset to start over")
)

const (
	initialScore = 1000.0
	maxScore     = 1000.0
)

// ScoreWeights are the multipliers of the 0-1000 behavior score. Gains
// raise it, losses lower it harder, idle-cash penalties drag it down.
type ScoreWeights struct {
	Gain    float64
	Loss    float64
	Penalty float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Gain: 100, Loss: 150, Penalty: 50}
}

// Config parameterizes one engine episode.
type Config struct {
	Symbol          string
	Portfolio       model.PortfolioParams
	WindowSize      int     // candles visible to the strategy
	RiskPerTradePct float64 // fraction of portfolio value per BUY
	HoldPenaltyRate float64 // fraction of cash burned per idle HOLD
	Score           ScoreWeights
}

func DefaultConfig() Config {
	return Config{
		Portfolio: model.PortfolioParams{
			InitialCapital: 100.0,
			FeeRate:        0.001,
			Slippage:       0.0005,
		},
		WindowSize:      20,
		RiskPerTradePct: 0.1,
		HoldPenaltyRate: 0.05,
		Score:           DefaultScoreWeights(),
	}
}

// Engine replays a candle series step by step against a portfolio. It
// follows the reset/step shape of RL environments: Reset returns the
// first observation, Step consumes one action per candle and reports
// the reward, and the episode terminates one candle before the end of
// the series.
type Engine struct {
	cfg     Config
	series  model.Series
	returns []float64 // per-candle close returns over the full series

	portfolio        *model.Portfolio
	phase            Phase
	cursor           int
	score            float64
	totalHoldPenalty float64
	equityCurve      []float64
	steps            []StepRecord
	tradePnLs        []float64
}

func NewEngine(cfg Config, series model.Series) (*Engine, error) {
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("invalid series: %w", err)
	}
	if cfg.Symbol == "" {
		cfg.Symbol = series.Symbol
	}
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("window size must be >= 1, got %d", cfg.WindowSize)
	}
	if cfg.RiskPerTradePct <= 0 || cfg.RiskPerTradePct > 1 {
		return nil, fmt.Errorf("risk per trade must be in (0, 1], got %g", cfg.RiskPerTradePct)
	}
	if cfg.HoldPenaltyRate < 0 || cfg.HoldPenaltyRate >= 1 {
		return nil, fmt.Errorf("hold penalty rate must be in [0, 1), got %g", cfg.HoldPenaltyRate)
	}
	if series.Len() < cfg.WindowSize+2 {
		return nil, fmt.Errorf("series too short: %d candles, need at least %d for window %d",
			series.Len(), cfg.WindowSize+2, cfg.WindowSize)
	}
	if cfg.Score == (ScoreWeights{}) {
		cfg.Score = DefaultScoreWeights()
	}

	portfolio, err := model.NewPortfolio(cfg.Portfolio)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		series:    series,
		returns:   series.Returns(),
		portfolio: portfolio,
		phase:     PhaseUninitialized,
	}, nil
}

// Reset rewinds the episode and returns the first observation.
func (e *Engine) Reset() strategy.Observation {
	e.portfolio.Reset()
	e.phase = PhaseActive
	e.cursor = e.cfg.WindowSize
	e.score = initialScore
	e.totalHoldPenalty = 0
	e.equityCurve = e.equityCurve[:0]
	e.steps = e.steps[:0]
	e.tradePnLs = e.tradePnLs[:0]
	return e.observation()
}

// Step executes one action on the current candle and advances. The
// engine state is untouched when an error is returned.
func (e *Engine) Step(action model.Action) (StepResult, error) {
	switch e.phase {
	case PhaseUninitialized:
		return StepResult{}, ErrNotActive
	case PhaseTerminal:
		return StepResult{}, ErrDone
	}
	if !action.Valid() {
		return StepResult{}, fmt.Errorf("invalid action %d", action)
	}

	row := e.series.Candles[e.cursor]
	price := row.Close
	prices := map[string]float64{e.cfg.Symbol: price}
	prevValue := e.portfolio.Value(prices)

	var fill *model.Fill
	holdPenalty := 0.0

	switch action {
	case model.ActionHold:
		// Idle cash decays so strategies cannot sit out the market for
		// free. Sub-cent penalties are skipped.
		penalty := e.portfolio.Cash * e.cfg.HoldPenaltyRate
		if penalty > 0.01 {
			e.portfolio.Cash -= penalty
			e.totalHoldPenalty += penalty
			holdPenalty = penalty
		}
	case model.ActionBuy:
		fill = e.portfolio.Buy(e.cfg.Symbol, prevValue*e.cfg.RiskPerTradePct, price, row.Timestamp)
	case model.ActionSell:
		fill = e.portfolio.SellAll(e.cfg.Symbol, price, row.Timestamp)
		if fill != nil {
			e.tradePnLs = append(e.tradePnLs, fill.TotalCost-fill.Quantity*fill.Price)
		}
	}

	currentValue := e.portfolio.Value(prices)
	e.equityCurve = append(e.equityCurve, currentValue)

	reward := 0.0
	if prevValue > 0 {
		reward = (currentValue - prevValue) / prevValue
	}

	// Score: gains push it up, losses pull 1.5x harder, idle penalties
	// drag it relative to the starting capital.
	if reward > 0 {
		e.score += reward * e.cfg.Score.Gain
	} else if reward < 0 {
		e.score += reward * e.cfg.Score.Loss
	}
	if holdPenalty > 0 {
		e.score -= holdPenalty / e.cfg.Portfolio.InitialCapital * e.cfg.Score.Penalty
	}
	if e.score < 0 {
		e.score = 0
	} else if e.score > maxScore {
		e.score = maxScore
	}

	e.steps = append(e.steps, StepRecord{
		Index:          e.cursor,
		Timestamp:      row.Timestamp,
		Action:         action,
		Price:          price,
		PortfolioValue: currentValue,
		Cash:           e.portfolio.Cash,
		PositionQty:    e.portfolio.Position(e.cfg.Symbol).Quantity,
		Reward:         reward,
		Score:          e.score,
		HoldPenalty:    holdPenalty,
		Sentiment:      row.Sentiment,
	})

	e.cursor++
	done := e.cursor >= e.series.Len()-1
	if done {
		e.phase = PhaseTerminal
	}

	return StepResult{
		Observation:      e.observation(),
		Reward:           reward,
		Done:             done,
		Fill:             fill,
		PortfolioValue:   currentValue,
		Score:            e.score,
		HoldPenalty:      holdPenalty,
		TotalHoldPenalty: e.totalHoldPenalty,
		Step:             e.cursor,
		TotalSteps:       e.series.Len(),
	}, nil
}

// observation builds the strategy's view of the current candle. The
// window holds the candles strictly before it. Terminal episodes get an
// empty observation.
func (e *Engine) observation() strategy.Observation {
	if e.phase != PhaseActive {
		return strategy.Observation{}
	}

	idx := e.cursor
	lo := idx - e.cfg.WindowSize
	row := e.series.Candles[idx]
	prices := map[string]float64{e.cfg.Symbol: row.Close}

	return strategy.Observation{
		Window:         e.series.Candles[lo:idx],
		Returns:        e.returns[lo:idx],
		CurrentPrice:   row.Close,
		Position:       e.portfolio.Position(e.cfg.Symbol).Quantity,
		PortfolioValue: e.portfolio.Value(prices),
		Cash:           e.portfolio.Cash,
		Sentiment:      row.Sentiment,
		Score:          e.score,
		Timestamp:      row.Timestamp,
		Step:           idx,
	}
}

// RunContext describes this episode to strategies that plan up front.
func (e *Engine) RunContext() strategy.RunContext {
	return strategy.RunContext{
		Series:          e.series,
		Costs:           e.cfg.Portfolio,
		WindowSize:      e.cfg.WindowSize,
		RiskPerTradePct: e.cfg.RiskPerTradePct,
		HoldPenaltyRate: e.cfg.HoldPenaltyRate,
	}
}

func (e *Engine) Config() Config               { return e.cfg }
func (e *Engine) Series() model.Series         { return e.series }
func (e *Engine) Portfolio() *model.Portfolio  { return e.portfolio }
func (e *Engine) Phase() Phase                 { return e.phase }
func (e *Engine) Done() bool                   { return e.phase == PhaseTerminal }
func (e *Engine) Score() float64               { return e.score }
func (e *Engine) TotalHoldPenalty() float64    { return e.totalHoldPenalty }

// ActionableSteps is how many Step calls one episode takes.
func (e *Engine) ActionableSteps() int {
	return e.series.Len() - 1 - e.cfg.WindowSize
}

func (e *Engine) EquityCurve() []float64 {
	return append([]float64(nil), e.equityCurve...)
}

func (e *Engine) StepLog() []StepRecord {
	return append([]StepRecord(nil), e.steps...)
}

// LastStep returns the most recent step record. Zero value before the
// first step.
func (e *Engine) LastStep() StepRecord {
	if len(e.steps) == 0 {
		return StepRecord{}
	}
	return e.steps[len(e.steps)-1]
}

// TradePnLs are the per-round-trip results recorded at each SELL fill.
func (e *Engine) TradePnLs() []float64 {
	return append([]float64(nil), e.tradePnLs...)
}
