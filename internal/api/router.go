package api

import (
	"github.com/gin-gonic/gin"

	"cortex-backtest/internal/api/handlers"
	"cortex-backtest/internal/api/middleware"
	"cortex-backtest/internal/config"
	"cortex-backtest/internal/experiments"
	"cortex-backtest/internal/metrics"
)

// NewRouter builds the HTTP surface. The caller owns the store's and
// deps' lifecycles.
func NewRouter(cfg *config.Config, store experiments.Store, reg *metrics.Registry) (*gin.Engine, *handlers.Deps) {
	deps := handlers.NewDeps(cfg)

	router := gin.New()
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS(cfg.API.CORSOrigins))

	backtestHandler := handlers.NewBacktestHandler(deps)
	datasetHandler := handlers.NewDatasetHandler(deps)
	experimentHandler := handlers.NewExperimentHandler(deps, store)

	router.GET("/health", handlers.Health)
	if reg != nil {
		router.GET("/metrics", gin.WrapH(reg.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/backtest", backtestHandler.RunBacktest)
		v1.POST("/backtest/compare", backtestHandler.CompareBacktests)
		v1.GET("/backtest/stream", backtestHandler.StreamBacktest)

		v1.GET("/strategies", handlers.ListStrategies)
		v1.GET("/datasets", datasetHandler.ListDatasets)
		v1.GET("/rank", datasetHandler.RankDatasets)

		v1.POST("/experiments", experimentHandler.RunGrid)
		v1.GET("/experiments", experimentHandler.List)
		v1.GET("/experiments/leaderboard", experimentHandler.Leaderboard)
		v1.GET("/experiments/:id", experimentHandler.Get)
		v1.DELETE("/experiments/:id", experimentHandler.Delete)
	}

	return router, deps
}
