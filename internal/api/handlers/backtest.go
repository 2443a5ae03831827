package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"cortex-backtest/internal/api/models"
	"cortex-backtest/internal/backtest"
	"cortex-backtest/internal/config"
)

// BacktestHandler runs backtests on stored datasets.
type BacktestHandler struct {
	*Deps
}

func NewBacktestHandler(deps *Deps) *BacktestHandler {
	return &BacktestHandler{Deps: deps}
}

// RunBacktest handles POST /api/v1/backtest.
func (h *BacktestHandler) RunBacktest(c *gin.Context) {
	var req models.BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	series, err := h.loadSeries(req.DatasetID, req.Options.LimitRows)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		abortError(c, status, "DATASET_ERROR", err)
		return
	}

	runner, err := h.buildRunner(series, h.mergedSim(req.Simulation), req.Strategy)
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}

	run, err := runner.Run()
	if err != nil {
		abortError(c, http.StatusInternalServerError, "BACKTEST_ERROR", err)
		return
	}

	c.JSON(http.StatusOK, buildResponse(run, req.Options))
}

// CompareBacktests handles POST /api/v1/backtest/compare. Each
// variation runs on a fresh engine over the same dataset; a variation
// that fails is reported in place instead of sinking the whole
// comparison.
func (h *BacktestHandler) CompareBacktests(c *gin.Context) {
	var req models.CompareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	series, err := h.loadSeries(req.DatasetID, 0)
	if err != nil {
		abortError(c, http.StatusBadRequest, "DATASET_ERROR", err)
		return
	}

	comparison := make([]models.ComparisonEntry, 0, len(req.Variations))
	for _, variation := range req.Variations {
		// Server defaults, then the shared overrides, then this
		// variation's own.
		sim := h.mergedSim(req.Simulation)
		sim = config.MergeSimulation(sim, simFromOverrides(variation.Simulation))

		entry := models.ComparisonEntry{Name: variation.Name}
		runner, err := h.buildRunner(series, sim, variation.Strategy)
		if err == nil {
			var run backtest.RunResult
			run, err = runner.Run()
			if err == nil {
				entry.Summary = run.Result
				entry.FinalScore = run.FinalScore
			}
		}
		if err != nil {
			entry.Error = err.Error()
		}
		comparison = append(comparison, entry)
	}

	c.JSON(http.StatusOK, models.CompareResponse{Comparison: comparison})
}
