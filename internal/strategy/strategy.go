package strategy

import (
	"fmt"
	"strings"
	"time"

	"cortex-backtest/internal/cache"
	"cortex-backtest/internal/model"
)

// Observation is the market snapshot a strategy decides on. Window holds
// the candles strictly before the current row (up to the configured
// window size, clipped near the start of the series, never padded) and
// Returns holds the per-candle close returns aligned with Window.
type Observation struct {
	Window  []model.Candle
	Returns []float64

	CurrentPrice   float64
	Position       float64 // quantity held, 0 when flat
	PortfolioValue float64
	Cash           float64
	Sentiment      float64
	Score          float64
	Timestamp      time.Time
	Step           int // index of the current row in the full series
}

// Closes extracts the close column of the window.
func (o Observation) Closes() []float64 {
	out := make([]float64, len(o.Window))
	for i, c := range o.Window {
		out[i] = c.Close
	}
	return out
}

// Volumes extracts the volume column of the window.
func (o Observation) Volumes() []float64 {
	out := make([]float64, len(o.Window))
	for i, c := range o.Window {
		out[i] = c.Volume
	}
	return out
}

func (o Observation) HasPosition() bool { return o.Position > 0 }

type Strategy interface {
	Name() string
	Decide(obs Observation) model.Action
	// Reasoning explains the last Decide call, for step logs.
	Reasoning() string
	Reset()
}

// RunContext describes the run a strategy is about to participate in.
// Strategies that need to see the whole series up front implement Primed;
// the runner calls Prime once before the first Decide.
type RunContext struct {
	Series          model.Series
	Costs           model.PortfolioParams
	WindowSize      int
	RiskPerTradePct float64
	HoldPenaltyRate float64
}

type Primed interface {
	Prime(rc RunContext) error
}

// Deps carries optional externals. Strategies that can use them pick
// them up during construction; everything works with the zero value.
type Deps struct {
	Analyzer Analyzer
	Cache    cache.Cache
}

// New builds a strategy by name with default dependencies. Parameter
// keys not understood by the strategy are ignored.
func New(name string, params map[string]any) (Strategy, error) {
	return NewWithDeps(name, params, Deps{})
}

// NewWithDeps builds a strategy by name, wiring the LLM analyzer and
// response cache into strategies that use them.
func NewWithDeps(name string, params map[string]any, deps Deps) (Strategy, error) {
	switch normalizeName(name) {
	case "buyhold":
		return NewBuyHoldStrategy(), nil
	case "statistical":
		return NewStatisticalStrategy(StatisticalParams{
			SMAFast:         intParam(params, "sma_fast", 0),
			SMASlow:         intParam(params, "sma_slow", 0),
			RSIPeriod:       intParam(params, "rsi_period", 0),
			RSIOversold:     floatParam(params, "rsi_oversold", 0),
			RSIOverbought:   floatParam(params, "rsi_overbought", 0),
			SentimentWeight: floatParam(params, "sentiment_weight", 0),
		}), nil
	case "swing":
		return NewSwingStrategy(SwingParams{
			SMAPeriod:          intParam(params, "sma_period", 0),
			StopLossPct:        floatParam(params, "stop_loss_pct", 0),
			TakeProfitPct:      floatParam(params, "take_profit_pct", 0),
			SentimentThreshold: floatParam(params, "sentiment_threshold", 0),
		}), nil
	case "contrarian":
		return NewContrarianStrategy(ContrarianParams{
			PriceSpikeThreshold: floatParam(params, "price_spike_threshold", 0),
			VolumeMultiplier:    floatParam(params, "volume_multiplier", 0),
			SentimentExtreme:    floatParam(params, "sentiment_extreme", 0),
			MaxHoldPeriods:      intParam(params, "max_hold_periods", 0),
			StopLossPct:         floatParam(params, "stop_loss_pct", 0),
		}), nil
	case "llm":
		return NewLLMStrategy(LLMParams{
			Interval: intParam(params, "interval", 0),
			Analyzer: deps.Analyzer,
			Cache:    deps.Cache,
		}), nil
	case "oracle":
		return NewOracleStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (known: %s)", name, strings.Join(Names(), ", "))
	}
}

// Info describes a registered strategy for listings.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func Infos() []Info {
	return []Info{
		{Name: "buyhold", Description: "Buys on the first step and holds to the end. Baseline."},
		{Name: "statistical", Description: "SMA crossover plus RSI plus sentiment, scored against fixed thresholds."},
		{Name: "swing", Description: "Trend entries around SMA(20) with stop-loss and take-profit exits."},
		{Name: "contrarian", Description: "Fades pump-and-dump spikes confirmed by volume and extreme sentiment."},
		{Name: "llm", Description: "Periodic market analysis from a language model, fast indicators in between."},
		{Name: "oracle", Description: "Perfect-foresight timing plan. Upper bound for ranking, not tradable."},
	}
}

func Names() []string {
	infos := Infos()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}

func floatParam(params map[string]any, key string, def float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}
