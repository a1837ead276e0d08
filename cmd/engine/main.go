package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/http"
	"github.com/hxuan190/quote-engine/internal/services/gas"
	"github.com/hxuan190/quote-engine/internal/services/market"
	"github.com/hxuan190/quote-engine/internal/services/router"
)

func main() {
	// GOGC, GOMAXPROCS and GOMEMLIMIT tuning for low-latency quoting
	common.InitQuoteRuntime()

	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment")
	}

	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.ChainConfig{},
		&config.EngineConfig{},
		&config.GasConfig{},
	)

	engineCfg := &config.EngineConfig{}
	if err := engineCfg.Load(); err != nil {
		log.Error().Err(err).Msg("failed to load engine config")
		return
	}
	storage, err := engine.NewStorage(engineCfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to open pool store")
		return
	}

	dic, err := container.New(
		conf,

		&router.Graph{},
		market.NewService(storage),
		&gas.Estimator{},
		&engine.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
