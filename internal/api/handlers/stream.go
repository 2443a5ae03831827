package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"cortex-backtest/internal/api/models"
	"cortex-backtest/internal/backtest"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser dashboards connect cross-origin; access control is the
	// CORS layer's job, not the upgrader's.
	CheckOrigin: func(*http.Request) bool { return true },
}

// StreamBacktest handles GET /api/v1/backtest/stream: upgrades to a
// websocket, runs one backtest, pushes every Nth step record as it
// happens and the summary at the end. Query params: dataset_id,
// strategy, every (default 1).
func (h *BacktestHandler) StreamBacktest(c *gin.Context) {
	datasetID := c.Query("dataset_id")
	strategyName := c.Query("strategy")
	if datasetID == "" || strategyName == "" {
		c.JSON(http.StatusBadRequest, models.NewError("INVALID_REQUEST", "dataset_id and strategy query parameters are required"))
		return
	}
	every := 1
	if raw := c.Query("every"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, models.NewError("INVALID_PARAM", "every must be a positive integer"))
			return
		}
		every = n
	}

	series, err := h.loadSeries(datasetID, 0)
	if err != nil {
		abortError(c, http.StatusBadRequest, "DATASET_ERROR", err)
		return
	}
	runner, err := h.buildRunner(series, h.Cfg.Simulation, models.StrategyConfig{Name: strategyName})
	if err != nil {
		abortError(c, http.StatusBadRequest, "INVALID_CONFIG", err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}
	defer conn.Close()

	sent := 0
	runner.OnStep = func(rec backtest.StepRecord, _ backtest.StepResult) {
		sent++
		if sent%every != 0 {
			return
		}
		if err := conn.WriteJSON(models.StreamMessage{Type: "step", Step: &rec}); err != nil {
			log.Debug().Err(err).Msg("stream client gone")
		}
	}

	run, err := runner.Run()
	if err != nil {
		_ = conn.WriteJSON(models.StreamMessage{Type: "error", Error: err.Error()})
		return
	}
	resp := buildResponse(run, models.RunOptions{})
	_ = conn.WriteJSON(models.StreamMessage{Type: "result", Result: &resp})
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}
