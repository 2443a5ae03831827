package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cortex-backtest/internal/api/models"
	"cortex-backtest/internal/data"
	"cortex-backtest/internal/experiments"
)

// ExperimentHandler runs grid sweeps and serves the stored results.
type ExperimentHandler struct {
	*Deps
	Store experiments.Store
}

func NewExperimentHandler(deps *Deps, store experiments.Store) *ExperimentHandler {
	return &ExperimentHandler{Deps: deps, Store: store}
}

// RunGrid handles POST /api/v1/experiments. The sweep runs
// synchronously; long grids belong in the CLI.
func (h *ExperimentHandler) RunGrid(c *gin.Context) {
	var req models.ExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_REQUEST", err)
		return
	}

	datasetIDs := req.DatasetIDs
	if len(datasetIDs) == 0 {
		infos, err := data.ListDatasets(h.Cfg.Data.Dir)
		if err != nil {
			abortError(c, http.StatusInternalServerError, "DATASET_LIST_ERROR", err)
			return
		}
		for _, info := range infos {
			datasetIDs = append(datasetIDs, info.ID)
		}
	}

	var spec experiments.GridSpec
	switch {
	case req.Grid != nil:
		spec = experiments.GridSpec{
			Strategies:       req.Grid.Strategies,
			DatasetIDs:       datasetIDs,
			HoldPenaltyRates: req.Grid.HoldPenaltyRates,
			RiskPerTradePcts: req.Grid.RiskPerTradePcts,
		}
	case req.Preset != "":
		var err error
		spec, err = experiments.Preset(req.Preset, datasetIDs)
		if err != nil {
			abortError(c, http.StatusBadRequest, "INVALID_PRESET", err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_REQUEST", "either preset or grid is required"))
		return
	}

	runner := &experiments.Runner{
		Data:      h.Cfg.Data,
		Sim:       h.Cfg.Simulation,
		Analytics: h.analytics(),
		Store:     h.Store,
		Workers:   req.Workers,
	}
	exps, err := runner.Run(c.Request.Context(), spec)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "EXPERIMENT_ERROR", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"experiments": exps, "count": len(exps)})
}

// List handles GET /api/v1/experiments.
func (h *ExperimentHandler) List(c *gin.Context) {
	exps, err := h.Store.List(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiments": exps, "count": len(exps)})
}

// Get handles GET /api/v1/experiments/:id.
func (h *ExperimentHandler) Get(c *gin.Context) {
	exp, err := h.Store.Load(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, experiments.ErrNotFound) {
			abortError(c, http.StatusNotFound, "NOT_FOUND", err)
			return
		}
		abortError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// Delete handles DELETE /api/v1/experiments/:id.
func (h *ExperimentHandler) Delete(c *gin.Context) {
	err := h.Store.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, experiments.ErrNotFound) {
			abortError(c, http.StatusNotFound, "NOT_FOUND", err)
			return
		}
		abortError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Leaderboard handles GET /api/v1/experiments/leaderboard?limit=N.
func (h *ExperimentHandler) Leaderboard(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, models.NewError("INVALID_PARAM", "limit must be a positive integer"))
			return
		}
		limit = n
	}
	top, err := experiments.Leaderboard(c.Request.Context(), h.Store, limit)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "STORE_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": top})
}
