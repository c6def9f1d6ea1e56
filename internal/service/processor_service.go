package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/loglive/telemetry-backend-go/internal/geofence"
	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/internal/trips"
)

// maxWorkers bounds the per-vehicle worker pool. Per-vehicle state is
// independent, so parallelism never changes outcomes.
const maxWorkers = 5

// ProcessSummary reports what one trip-engine run did.
type ProcessSummary struct {
	Vehicles int `json:"vehicles"`
	Trips    int `json:"trips"`
	Failed   int `json:"failed"`
}

// ProcessorService runs the trip segmentation engine across the fleet.
type ProcessorService struct {
	pois      *repository.POIRepository
	vehicles  *repository.VehicleRepository
	positions *repository.PositionRepository
	trips     *repository.TripRepository
}

// NewProcessorService creates a new processor service
func NewProcessorService(pois *repository.POIRepository, vehicles *repository.VehicleRepository,
	positions *repository.PositionRepository, trips *repository.TripRepository) *ProcessorService {
	return &ProcessorService{pois: pois, vehicles: vehicles, positions: positions, trips: trips}
}

// Run processes unconsumed positions for every known vehicle, or for a
// single plate when one is given. Runs are idempotent: each vehicle
// resumes strictly after its processing cursor. When days > 0 the run
// instead re-derives trips over the last N days, filling gaps left by
// late backfills; stored trips are never deleted or overwritten.
// Per-vehicle failures are isolated so one bad vehicle never stops the
// rest of the fleet.
func (s *ProcessorService) Run(ctx context.Context, plate string, days int) (ProcessSummary, error) {
	var sum ProcessSummary
	logger := log.WithField("component", "processor")

	pois, err := s.pois.List()
	if err != nil {
		return sum, err
	}
	if len(pois) == 0 {
		return sum, fmt.Errorf("processor: no POIs registered; seed reference data first")
	}

	targets, err := s.targets(plate)
	if err != nil {
		return sum, err
	}
	if len(targets) == 0 {
		logger.Warn("No vehicles to process")
		return sum, nil
	}

	engine := trips.NewEngine(geofence.NewIndex(pois), s.positions, s.trips)

	var since time.Time
	if days > 0 {
		since = time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for _, v := range targets {
		v := v
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			var written int
			var err error
			if days > 0 {
				written, err = engine.ReprocessVehicle(v.ID, since)
			} else {
				written, err = engine.ProcessVehicle(v.ID)
			}

			mu.Lock()
			defer mu.Unlock()
			sum.Vehicles++
			sum.Trips += written
			if err != nil {
				sum.Failed++
				logger.WithField("vehicle", v.ID).WithError(err).Error("Vehicle processing failed")
				// Isolated: the run keeps going for other vehicles.
				return nil
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sum, err
	}

	logger.WithFields(log.Fields{
		"vehicles": sum.Vehicles,
		"trips":    sum.Trips,
		"failed":   sum.Failed,
	}).Info("Processing finished")
	return sum, nil
}

func (s *ProcessorService) targets(plate string) ([]models.Vehicle, error) {
	if plate == "" {
		return s.vehicles.List()
	}
	v, err := s.vehicles.GetByPlate(plate)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("processor: unknown plate %q", plate)
	}
	return []models.Vehicle{*v}, nil
}
