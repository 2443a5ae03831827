package experiments

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-backtest/internal/config"
	"cortex-backtest/internal/data"
)

func writeGarbage(dir, name string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte("{not json"), 0o644)
}

func fixtureDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for i, symbol := range []string{"BTCUSDT", "ETHUSDT"} {
		series := data.Synthetic(data.SyntheticParams{Symbol: symbol, Rows: 120, Seed: int64(i + 1)})
		require.NoError(t, data.WriteSeriesCSV(filepath.Join(dir, symbol+"_1d.csv"), series))
	}
	return dir
}

func TestPreset(t *testing.T) {
	spec, err := Preset("quick", []string{"BTCUSDT_1d"})
	require.NoError(t, err)
	assert.Equal(t, 2, spec.Cells())

	spec, err = Preset("standard", []string{"BTCUSDT_1d", "ETHUSDT_1d"})
	require.NoError(t, err)
	assert.Equal(t, 4*2*2*2, spec.Cells())

	_, err = Preset("nope", nil)
	assert.Error(t, err)
}

func TestRunnerSweepsGridAndStores(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	r := &Runner{
		Data:  config.DataConfig{Dir: fixtureDataDir(t)},
		Sim:   config.DefaultConfig().Simulation,
		Store: store,
	}
	spec := GridSpec{
		Strategies:       []string{"buyhold", "statistical"},
		DatasetIDs:       []string{"BTCUSDT_1d", "ETHUSDT_1d"},
		HoldPenaltyRates: []float64{0, 0.001},
		RiskPerTradePcts: []float64{0.1},
	}

	exps, err := r.Run(ctx, spec)
	require.NoError(t, err)
	assert.Len(t, exps, spec.Cells())

	stored, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, spec.Cells())

	seen := map[string]bool{}
	for _, exp := range exps {
		assert.NotEmpty(t, exp.ID)
		assert.False(t, seen[exp.ID], "IDs must be unique")
		seen[exp.ID] = true
		assert.Greater(t, exp.Steps, 0)
		assert.Equal(t, exp.Strategy, exp.Result.StrategyName)
	}
}

func TestRunnerParallelMatchesSequentialCount(t *testing.T) {
	ctx := context.Background()
	r := &Runner{
		Data:    config.DataConfig{Dir: fixtureDataDir(t)},
		Sim:     config.DefaultConfig().Simulation,
		Workers: 4,
	}
	spec, err := Preset("quick", []string{"BTCUSDT_1d", "ETHUSDT_1d"})
	require.NoError(t, err)

	exps, err := r.Run(ctx, spec)
	require.NoError(t, err)
	assert.Len(t, exps, spec.Cells())
}

func TestRunnerUnknownStrategySkipsCell(t *testing.T) {
	ctx := context.Background()
	r := &Runner{
		Data: config.DataConfig{Dir: fixtureDataDir(t)},
		Sim:  config.DefaultConfig().Simulation,
	}
	spec := GridSpec{
		Strategies: []string{"nonsense", "buyhold"},
		DatasetIDs: []string{"BTCUSDT_1d"},
	}

	exps, err := r.Run(ctx, spec)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "buyhold", exps[0].Strategy)
}

func TestRunnerMissingDataset(t *testing.T) {
	ctx := context.Background()
	r := &Runner{
		Data: config.DataConfig{Dir: t.TempDir()},
		Sim:  config.DefaultConfig().Simulation,
	}
	_, err := r.Run(ctx, GridSpec{Strategies: []string{"buyhold"}, DatasetIDs: []string{"MISSING_1d"}})
	assert.Error(t, err)
}
