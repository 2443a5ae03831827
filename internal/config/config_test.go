package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml", `
strategy:
  name: buyhold
simulation:
  initial_capital: 1000
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "buyhold", c.Strategy.Name)
	assert.Equal(t, 1000.0, c.Simulation.InitialCapital)
	// Untouched fields keep their defaults.
	assert.Equal(t, 0.001, c.Simulation.FeeRate)
	assert.Equal(t, 20, c.Simulation.WindowSize)
	assert.Equal(t, 150.0, c.Simulation.ScoreLossWeight)
	assert.Equal(t, 365.0, c.Analytics.TradingPeriodsPerYear)
}

func TestLoadProfileFileWithOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "aggressive.yaml", `
simulation:
  initial_capital: 5000
  risk_per_trade_pct: 0.5
  hold_penalty_rate: 0.05
`)
	path := writeFile(t, dir, "config.yaml", `
profile_file: aggressive.yaml
strategy:
  name: swing
simulation:
  risk_per_trade_pct: 0.25
`)

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, c.Simulation.InitialCapital, "from profile")
	assert.Equal(t, 0.25, c.Simulation.RiskPerTradePct, "main file wins")
	assert.Equal(t, 0.05, c.Simulation.HoldPenaltyRate, "from profile")
	assert.Equal(t, 0.001, c.Simulation.FeeRate, "default survives")
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing_strategy", func(c *Config) { c.Strategy.Name = "" }},
		{"zero_capital", func(c *Config) { c.Simulation.InitialCapital = 0 }},
		{"bad_fee", func(c *Config) { c.Simulation.FeeRate = 1.5 }},
		{"zero_window", func(c *Config) { c.Simulation.WindowSize = 0 }},
		{"risk_too_high", func(c *Config) { c.Simulation.RiskPerTradePct = 2 }},
		{"negative_penalty", func(c *Config) { c.Simulation.HoldPenaltyRate = -0.1 }},
		{"zero_periods", func(c *Config) { c.Analytics.TradingPeriodsPerYear = 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := DefaultConfig()
			require.NoError(t, c.Validate())
			tc.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestMergeSimulation(t *testing.T) {
	base := DefaultConfig().Simulation
	merged := MergeSimulation(base, SimulationConfig{FeeRate: 0.002, WindowSize: 30})
	assert.Equal(t, 0.002, merged.FeeRate)
	assert.Equal(t, 30, merged.WindowSize)
	assert.Equal(t, base.InitialCapital, merged.InitialCapital)
	assert.Equal(t, base.Slippage, merged.Slippage)
}

func TestStoreDSNEnvOverride(t *testing.T) {
	s := StoreConfig{PostgresDSN: "from-file"}
	assert.Equal(t, "from-file", s.DSN())
	t.Setenv("POSTGRES_DSN", "from-env")
	assert.Equal(t, "from-env", s.DSN())
}
