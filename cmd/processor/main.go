package main

import (
	"context"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/loglive/telemetry-backend-go/internal/config"
	"github.com/loglive/telemetry-backend-go/internal/database"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/internal/service"
)

func main() {
	plate := flag.String("placa", "", "process a single vehicle by plate")
	days := flag.Int("dias", 0, "reprocess the last N days instead of resuming from the cursor")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		os.Exit(1)
	}

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.WithError(err).Error("Failed to initialize database")
		os.Exit(1)
	}
	defer database.Close()

	db := database.GetDB()
	processor := service.NewProcessorService(
		repository.NewPOIRepository(db),
		repository.NewVehicleRepository(db),
		repository.NewPositionRepository(db),
		repository.NewTripRepository(db))

	sum, err := processor.Run(context.Background(), *plate, *days)
	if err != nil {
		log.WithError(err).Error("Processing failed")
		os.Exit(1)
	}

	log.WithFields(log.Fields{
		"vehicles": sum.Vehicles,
		"trips":    sum.Trips,
		"failed":   sum.Failed,
	}).Info("Processor run complete")
}
