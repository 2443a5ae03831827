package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"cortex-backtest/internal/model"
)

// Config is the on-disk configuration shape (YAML).
type Config struct {
	// Optional: load simulation parameters from a separate YAML profile.
	// Explicit fields in Simulation override the profile.
	ProfileFile string `yaml:"profile_file"`

	Simulation SimulationConfig `yaml:"simulation"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Data       DataConfig       `yaml:"data"`
	Provider   ProviderConfig   `yaml:"provider"`
	Store      StoreConfig      `yaml:"store"`
	API        APIConfig        `yaml:"api"`
}

// SimulationConfig holds the engine's tunable knobs plus the score
// weights.
type SimulationConfig struct {
	InitialCapital  float64 `yaml:"initial_capital"`
	FeeRate         float64 `yaml:"fee_rate"`
	Slippage        float64 `yaml:"slippage"`
	RiskPerTradePct float64 `yaml:"risk_per_trade_pct"`
	WindowSize      int     `yaml:"window_size"`
	HoldPenaltyRate float64 `yaml:"hold_penalty_rate"`

	// Tuning constants of the behavior score; the defaults come from the
	// reference parameterization and have no derivation.
	ScoreGainWeight    float64 `yaml:"score_gain_weight"`
	ScoreLossWeight    float64 `yaml:"score_loss_weight"`
	ScorePenaltyWeight float64 `yaml:"score_penalty_weight"`
}

type StrategyConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:"params"`
}

type AnalyticsConfig struct {
	RiskFreeRate          float64 `yaml:"risk_free_rate"`
	TradingPeriodsPerYear float64 `yaml:"trading_periods_per_year"`
}

type DataConfig struct {
	// Dir holds one OHLCV CSV per symbol/interval pair.
	Dir string `yaml:"dir"`
	// SentimentDir optionally holds per-symbol sentiment CSVs merged on
	// date during loading.
	SentimentDir string `yaml:"sentiment_dir"`
}

type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	// APIKeyEnv names the environment variable holding the key; the key
	// itself never lives in the file.
	APIKeyEnv         string        `yaml:"api_key_env"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute float64       `yaml:"requests_per_minute"`
}

// APIKey resolves the provider key from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

type StoreConfig struct {
	// Dir is the file-store root; one JSON per experiment.
	Dir string `yaml:"dir"`
	// PostgresDSN switches the experiment store to Postgres when set.
	// POSTGRES_DSN in the environment overrides it.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// DSN returns the effective Postgres DSN, environment first.
func (s StoreConfig) DSN() string {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	return s.PostgresDSN
}

type APIConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

func DefaultConfig() Config {
	return Config{
		Simulation: SimulationConfig{
			InitialCapital:     100.0,
			FeeRate:            0.001,
			Slippage:           0.0005,
			RiskPerTradePct:    0.1,
			WindowSize:         20,
			HoldPenaltyRate:    0.001,
			ScoreGainWeight:    100,
			ScoreLossWeight:    150,
			ScorePenaltyWeight: 50,
		},
		Strategy: StrategyConfig{Name: "statistical"},
		Analytics: AnalyticsConfig{
			RiskFreeRate:          0.05,
			TradingPeriodsPerYear: 365,
		},
		Data: DataConfig{Dir: "./data"},
		Provider: ProviderConfig{
			APIKeyEnv:         "OPENAI_API_KEY",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 30,
		},
		Store: StoreConfig{Dir: "./results/experiments"},
		API:   APIConfig{Addr: ":8080", CORSOrigins: []string{"*"}},
	}
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config over the defaults, but does not
// validate it. Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := DefaultConfig()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	// If profile_file is set, load it and keep any explicit overrides
	// from the main file.
	if c.ProfileFile != "" {
		profilePath := c.ProfileFile
		if !filepath.IsAbs(profilePath) {
			// Prefer interpreting relative paths as relative to the
			// config file directory, falling back to the cwd-relative
			// path when that does not exist.
			cand := filepath.Join(filepath.Dir(path), profilePath)
			if _, err := os.Stat(cand); err == nil {
				profilePath = cand
			}
		}
		loaded, err := loadProfileFile(profilePath)
		if err != nil {
			return nil, err
		}
		// Defaults, then the profile, then explicit overrides from the
		// main file.
		var fromFile Config
		if err := yaml.Unmarshal(raw, &fromFile); err != nil {
			return nil, err
		}
		base := MergeSimulation(DefaultConfig().Simulation, loaded)
		c.Simulation = MergeSimulation(base, fromFile.Simulation)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Strategy.Name == "" {
		return errors.New("strategy.name is required")
	}
	s := c.Simulation
	params := model.PortfolioParams{
		InitialCapital: s.InitialCapital,
		FeeRate:        s.FeeRate,
		Slippage:       s.Slippage,
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("simulation config invalid: %w", err)
	}
	if s.WindowSize < 1 {
		return errors.New("simulation.window_size must be >= 1")
	}
	if s.RiskPerTradePct <= 0 || s.RiskPerTradePct > 1 {
		return errors.New("simulation.risk_per_trade_pct must be in (0, 1]")
	}
	if s.HoldPenaltyRate < 0 || s.HoldPenaltyRate >= 1 {
		return errors.New("simulation.hold_penalty_rate must be in [0, 1)")
	}
	if c.Analytics.TradingPeriodsPerYear <= 0 {
		return errors.New("analytics.trading_periods_per_year must be > 0")
	}
	return nil
}

// PortfolioParams converts the simulation section into the ledger's
// parameter struct.
func (s SimulationConfig) PortfolioParams() model.PortfolioParams {
	return model.PortfolioParams{
		InitialCapital: s.InitialCapital,
		FeeRate:        s.FeeRate,
		Slippage:       s.Slippage,
	}
}

type profileFileWrapper struct {
	Simulation SimulationConfig `yaml:"simulation"`
}

func loadProfileFile(path string) (SimulationConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SimulationConfig{}, err
	}
	var w profileFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return SimulationConfig{}, err
	}
	return w.Simulation, nil
}

// MergeSimulation overlays non-zero fields from override onto base.
// Used when loading a profile file and when applying request overrides
// in the API.
func MergeSimulation(base, override SimulationConfig) SimulationConfig {
	out := base
	if override.InitialCapital != 0 {
		out.InitialCapital = override.InitialCapital
	}
	if override.FeeRate != 0 {
		out.FeeRate = override.FeeRate
	}
	if override.Slippage != 0 {
		out.Slippage = override.Slippage
	}
	if override.RiskPerTradePct != 0 {
		out.RiskPerTradePct = override.RiskPerTradePct
	}
	if override.WindowSize != 0 {
		out.WindowSize = override.WindowSize
	}
	if override.HoldPenaltyRate != 0 {
		out.HoldPenaltyRate = override.HoldPenaltyRate
	}
	if override.ScoreGainWeight != 0 {
		out.ScoreGainWeight = override.ScoreGainWeight
	}
	if override.ScoreLossWeight != 0 {
		out.ScoreLossWeight = override.ScoreLossWeight
	}
	if override.ScorePenaltyWeight != 0 {
		out.ScorePenaltyWeight = override.ScorePenaltyWeight
	}
	return out
}
