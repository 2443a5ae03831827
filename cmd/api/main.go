package main

import (
	"flag"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cortex-backtest/internal/api"
	"cortex-backtest/internal/config"
	"cortex-backtest/internal/experiments"
	"cortex-backtest/internal/metrics"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional, defaults apply)")
	verbose := flag.Bool("verbose", false, "Debug logging")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := config.DefaultConfig()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *cfgPath).Msg("loading config")
		}
		cfg = *loaded
	}
	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := experiments.NewAuto(cfg.Store.Dir, cfg.Store.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("opening experiment store")
	}
	defer store.Close()

	router, deps := api.NewRouter(&cfg, store, metrics.Default)
	defer deps.Close()

	log.Info().
		Str("addr", cfg.API.Addr).
		Str("data_dir", cfg.Data.Dir).
		Msg("starting API server")
	if err := router.Run(cfg.API.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
