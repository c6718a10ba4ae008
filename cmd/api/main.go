package main

import (
	"context"
	"os"
	"time"

	"ropa-backend/internal/app"
	"ropa-backend/internal/config"
	"ropa-backend/internal/database"
	"ropa-backend/internal/refdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migrate")
	}
	if cfg.SeedReferenceData {
		if err := refdata.Seed(context.Background(), db); err != nil {
			log.Fatal().Err(err).Msg("reference data seed")
		}
	}

	fiberApp, err := app.CreateApp(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
	if err := fiberApp.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
