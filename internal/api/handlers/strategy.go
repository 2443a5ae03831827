package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cortex-backtest/internal/api/models"
	"cortex-backtest/internal/strategy"
)

// strategyParameters maps each registered strategy to its tunable
// parameters for the listing endpoint. Strategies absent here have no
// exposed knobs.
var strategyParameters = map[string][]models.ParameterInfo{
	"statistical": {
		{Name: "sma_fast", Type: "int", Description: "Fast SMA period for the crossover signal", Default: 10},
		{Name: "sma_slow", Type: "int", Description: "Slow SMA period for the crossover signal", Default: 30},
		{Name: "rsi_period", Type: "int", Description: "RSI lookback", Default: 14},
		{Name: "rsi_oversold", Type: "float", Description: "RSI level treated as oversold", Default: 30.0},
		{Name: "rsi_overbought", Type: "float", Description: "RSI level treated as overbought", Default: 70.0},
		{Name: "sentiment_weight", Type: "float", Description: "Weight of the sentiment signal in the composite score", Default: 0.3},
	},
	"swing": {
		{Name: "sma_period", Type: "int", Description: "Trend-filter SMA period", Default: 20},
		{Name: "stop_loss_pct", Type: "float", Description: "Exit when the position is down this fraction", Default: 0.05},
		{Name: "take_profit_pct", Type: "float", Description: "Exit when the position is up this fraction", Default: 0.10},
		{Name: "sentiment_threshold", Type: "float", Description: "Minimum sentiment for a trend entry", Default: 0.1},
	},
	"contrarian": {
		{Name: "price_spike_threshold", Type: "float", Description: "One-step move treated as a spike", Default: 0.03},
		{Name: "volume_multiplier", Type: "float", Description: "Volume vs window average required to confirm a spike", Default: 3.0},
		{Name: "sentiment_extreme", Type: "float", Description: "Absolute sentiment treated as extreme", Default: 0.5},
		{Name: "max_hold_periods", Type: "int", Description: "Steps before a contrarian position is closed on time", Default: 5},
		{Name: "stop_loss_pct", Type: "float", Description: "Stop-loss for contrarian entries", Default: 0.03},
	},
	"llm": {
		{Name: "interval", Type: "int", Description: "Steps between analyzer consultations", Default: 24},
	},
}

// ListStrategies handles GET /api/v1/strategies.
func ListStrategies(c *gin.Context) {
	infos := strategy.Infos()
	out := make([]models.StrategyInfo, len(infos))
	for i, info := range infos {
		out[i] = models.StrategyInfo{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  strategyParameters[info.Name],
		}
	}
	c.JSON(http.StatusOK, gin.H{"strategies": out})
}
