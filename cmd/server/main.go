package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/loglive/telemetry-backend-go/internal/api"
	"github.com/loglive/telemetry-backend-go/internal/config"
	"github.com/loglive/telemetry-backend-go/internal/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close()

	router := api.SetupRouter(cfg, database.GetDB())

	log.WithField("port", cfg.Port).Info("Server starting")
	if err := router.Run(cfg.Port); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
