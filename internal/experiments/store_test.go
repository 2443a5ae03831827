package experiments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cortex-backtest/internal/analysis"
)

func sampleExperiment(id string, sharpe float64) Experiment {
	return Experiment{
		ID:              id,
		CreatedAt:       time.Now().UTC().Truncate(time.Second),
		Strategy:        "statistical",
		DatasetID:       "BTCUSDT_1d",
		Symbol:          "BTCUSDT",
		WindowSize:      20,
		HoldPenaltyRate: 0.001,
		RiskPerTradePct: 0.1,
		Steps:           300,
		FinalScore:      840,
		Result: analysis.BacktestResult{
			StrategyName:   "statistical",
			Symbol:         "BTCUSDT",
			InitialCapital: 100,
			FinalValue:     130,
			TotalPnL:       30,
			SharpeRatio:    sharpe,
			TotalTrades:    12,
		},
	}
}

func TestNewID(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 25, 30, 0, time.UTC)
	id := NewID(now)
	assert.True(t, strings.HasPrefix(id, "exp_20240315_142530_"), id)
	assert.Len(t, id, len("exp_20240315_142530_")+8)
	assert.NotEqual(t, id, NewID(now), "uuid tail keeps IDs unique")
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	exp := sampleExperiment("exp_20240315_142530_aaaaaaaa", 1.5)
	require.NoError(t, store.Save(ctx, exp))

	loaded, err := store.Load(ctx, exp.ID)
	require.NoError(t, err)
	assert.Equal(t, exp, loaded)

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, exp.ID))
	_, err = store.Load(ctx, exp.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, exp.ID), ErrNotFound)
}

func TestFileStoreListSkipsGarbage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleExperiment("exp_a", 1)))
	require.NoError(t, writeGarbage(dir, "broken.json"))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLeaderboard(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleExperiment("exp_low", 0.4)))
	require.NoError(t, store.Save(ctx, sampleExperiment("exp_high", 2.1)))
	require.NoError(t, store.Save(ctx, sampleExperiment("exp_mid", 1.2)))

	top, err := Leaderboard(ctx, store, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "exp_high", top[0].ID)
	assert.Equal(t, "exp_mid", top[1].ID)

	all, err := Leaderboard(ctx, store, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
