package service

import (
	"context"

	"github.com/loglive/telemetry-backend-go/internal/config"
	"github.com/loglive/telemetry-backend-go/internal/ingest"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/internal/sascar"
)

// SyncService runs ingestion against the vendor feed. Each run gets a
// fresh controller so retry state and cursor caches never leak between
// scheduled invocations.
type SyncService struct {
	cfg       *config.Config
	positions *repository.PositionRepository
	vehicles  *repository.VehicleRepository
}

// NewSyncService creates a new sync service
func NewSyncService(cfg *config.Config, positions *repository.PositionRepository, vehicles *repository.VehicleRepository) *SyncService {
	return &SyncService{cfg: cfg, positions: positions, vehicles: vehicles}
}

// RunLive drains the pending-position queue.
func (s *SyncService) RunLive(ctx context.Context) (ingest.Summary, error) {
	ctrl, err := s.newController()
	if err != nil {
		return ingest.Summary{}, err
	}
	return ctrl.RunLive(ctx)
}

// RunBackfill replays the last `hours` hours, optionally for a single
// vehicle.
func (s *SyncService) RunBackfill(ctx context.Context, hours int, vehicleID int64) (ingest.Summary, error) {
	ctrl, err := s.newController()
	if err != nil {
		return ingest.Summary{}, err
	}
	return ctrl.RunBackfill(ctx, hours, vehicleID)
}

func (s *SyncService) newController() (*ingest.Controller, error) {
	if err := s.cfg.RequireSascar(); err != nil {
		return nil, err
	}
	feed := sascar.NewClient(s.cfg.SascarURL, s.cfg.SascarUser, s.cfg.SascarPass)
	retrier := ingest.NewRetrier(s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay, s.cfg.MaxFailures)
	return ingest.NewController(feed, s.positions, s.vehicles, retrier), nil
}
