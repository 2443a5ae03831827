package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cortex-backtest/internal/analysis"
	"cortex-backtest/internal/api/models"
	"cortex-backtest/internal/data"
	"cortex-backtest/internal/model"
)

// DatasetHandler lists and ranks the price files the server can see.
type DatasetHandler struct {
	*Deps
}

func NewDatasetHandler(deps *Deps) *DatasetHandler {
	return &DatasetHandler{Deps: deps}
}

// ListDatasets handles GET /api/v1/datasets.
func (h *DatasetHandler) ListDatasets(c *gin.Context) {
	datasets, err := data.ListDatasets(h.Cfg.Data.Dir)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "DATASET_LIST_ERROR", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"datasets": datasets, "count": len(datasets)})
}

// RankDatasets handles GET /api/v1/rank: opportunity ranking of every
// dataset by oracle profit. ?limit=N trims the output.
func (h *DatasetHandler) RankDatasets(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, models.NewError("INVALID_PARAM", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	datasets, err := data.ListDatasets(h.Cfg.Data.Dir)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "DATASET_LIST_ERROR", err)
		return
	}

	byID := make(map[string]model.Series, len(datasets))
	symbolByID := make(map[string]string, len(datasets))
	for _, ds := range datasets {
		series, err := data.LoadDataset(h.Cfg.Data.Dir, h.Cfg.Data.SentimentDir, ds.ID)
		if err != nil {
			continue
		}
		// Key by dataset ID so several intervals of one symbol rank
		// independently.
		series.Symbol = ds.ID
		byID[ds.ID] = series
		symbolByID[ds.ID] = ds.Symbol
	}

	ranked := analysis.RankByOracleProfit(byID)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}

	out := make([]models.RankEntry, len(ranked))
	for i, r := range ranked {
		out[i] = models.RankEntry{
			Rank:         i + 1,
			DatasetID:    r.Symbol,
			Symbol:       symbolByID[r.Symbol],
			Rows:         r.Count,
			SpreadP95P05: r.SpreadP95P05,
			MinClose:     r.MinClose,
			MaxClose:     r.MaxClose,
			OracleProfit: r.OracleProfit,
		}
	}
	c.JSON(http.StatusOK, gin.H{"rankings": out})
}
