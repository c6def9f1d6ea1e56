package main

import (
	"context"
	"errors"
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/loglive/telemetry-backend-go/internal/config"
	"github.com/loglive/telemetry-backend-go/internal/database"
	"github.com/loglive/telemetry-backend-go/internal/ingest"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/internal/sascar"
	"github.com/loglive/telemetry-backend-go/internal/service"
)

// Exit codes for the scheduler. Anything non-zero means the run did not
// complete; 2 distinguishes an aborted run (partial data saved) from a
// setup failure.
const (
	exitSetup   = 1
	exitAborted = 2
)

func main() {
	hours := flag.Int("hours", 0, "backfill window in hours (0 = live drain)")
	vehicleID := flag.Int64("veiculo", 0, "restrict backfill to one vehicle ID")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Error("Invalid configuration")
		os.Exit(exitSetup)
	}

	if err := database.Init(database.Config{Path: cfg.DBPath}); err != nil {
		log.WithError(err).Error("Failed to initialize database")
		os.Exit(exitSetup)
	}
	defer database.Close()

	db := database.GetDB()
	sync := service.NewSyncService(cfg,
		repository.NewPositionRepository(db),
		repository.NewVehicleRepository(db))

	ctx := context.Background()

	var sum ingest.Summary
	if *hours > 0 {
		log.WithFields(log.Fields{"hours": *hours, "vehicle": *vehicleID}).Info("Starting backfill")
		sum, err = sync.RunBackfill(ctx, *hours, *vehicleID)
	} else {
		log.Info("Starting live drain")
		sum, err = sync.RunLive(ctx)
	}

	log.WithFields(log.Fields{
		"received": sum.Received,
		"saved":    sum.Saved,
		"batches":  sum.Batches,
	}).Info("Sync finished")

	if err != nil {
		if errors.Is(err, ingest.ErrRunAborted) || errors.Is(err, sascar.ErrAuth) {
			log.WithError(err).Error("Run aborted")
			os.Exit(exitAborted)
		}
		log.WithError(err).Error("Sync failed")
		os.Exit(exitSetup)
	}
}
