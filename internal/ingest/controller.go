package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/internal/sascar"
)

// Vendor limits: the queue operation returns at most 100 positions per
// batch, and history queries are capped at 60 minutes, so backfill
// windows are sliced at 45 to keep margin.
const (
	batchSize         = 100
	backfillSlice     = 45 * time.Minute
	interWindowPause  = 500 * time.Millisecond
	interVehiclePause = time.Second
)

// ErrRunAborted signals that a run stopped after exhausting the
// consecutive-failure budget. The external scheduler re-invokes the
// process; everything persisted before the abort is kept.
var ErrRunAborted = errors.New("ingest: run aborted after consecutive feed failures")

// Feed abstracts the vendor client so the controller can be tested
// against a fake.
type Feed interface {
	FetchPendingBatch(ctx context.Context, quantity int) ([]sascar.Position, error)
	FetchHistory(ctx context.Context, vehicleID int64, from, to time.Time) ([]sascar.Position, error)
	FetchVehicles(ctx context.Context) ([]models.Vehicle, error)
}

// Summary reports what one ingestion run did.
type Summary struct {
	Received int `json:"received"`
	Saved    int `json:"saved"`
	Batches  int `json:"batches"`
}

// Controller drains the vendor feed (live mode) or replays a historical
// window (backfill mode), applying the save filter before persisting.
type Controller struct {
	feed      Feed
	positions *repository.PositionRepository
	vehicles  *repository.VehicleRepository
	retrier   *Retrier

	// In-run cursor cache: last accepted position per vehicle, covering
	// candidates accepted earlier in the same run that the DB query
	// alone would also return.
	lastSaved map[int64]*models.RawPosition

	now   func() time.Time
	pause func(time.Duration)
}

// NewController creates an ingestion controller.
func NewController(feed Feed, positions *repository.PositionRepository, vehicles *repository.VehicleRepository, retrier *Retrier) *Controller {
	return &Controller{
		feed:      feed,
		positions: positions,
		vehicles:  vehicles,
		retrier:   retrier,
		lastSaved: make(map[int64]*models.RawPosition),
		now:       time.Now,
		pause:     time.Sleep,
	}
}

// RunLive drains the pending-position queue until the feed reports no
// more data. Accepted positions are individually durable; a failure
// mid-run never rolls back prior batches.
func (c *Controller) RunLive(ctx context.Context) (Summary, error) {
	var sum Summary
	logger := log.WithField("component", "ingest")

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		batch, err := c.fetchWithRetry(ctx, func() ([]sascar.Position, error) {
			return c.feed.FetchPendingBatch(ctx, batchSize)
		})
		if err != nil {
			return sum, err
		}

		sum.Batches++
		sum.Received += len(batch)
		if len(batch) == 0 {
			logger.WithField("batches", sum.Batches).Info("Queue drained")
			return sum, nil
		}

		saved, err := c.savePositions(batch)
		sum.Saved += saved
		if err != nil {
			return sum, err
		}

		logger.WithFields(log.Fields{
			"batch":    sum.Batches,
			"received": len(batch),
			"saved":    saved,
		}).Info("Batch persisted")

		c.pause(interWindowPause)
	}
}

// RunBackfill replays positions with timestamps in [now-hours, now],
// optionally restricted to a single vehicle, sliced into windows the
// vendor accepts. Candidates remain subject to the save filter.
func (c *Controller) RunBackfill(ctx context.Context, hours int, vehicleID int64) (Summary, error) {
	var sum Summary
	logger := log.WithField("component", "ingest")

	if hours <= 0 {
		return sum, fmt.Errorf("ingest: backfill hours must be positive, got %d", hours)
	}

	vehicles, err := c.backfillTargets(ctx, vehicleID)
	if err != nil {
		return sum, err
	}
	if len(vehicles) == 0 {
		logger.Warn("No vehicles known; nothing to backfill")
		return sum, nil
	}

	end := c.now()
	start := end.Add(-time.Duration(hours) * time.Hour)

	for _, v := range vehicles {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		vlog := logger.WithField("vehicle", v.ID)

		// Walk the window newest-first in vendor-sized slices.
		for winEnd := end; winEnd.After(start); {
			winStart := winEnd.Add(-backfillSlice)
			if winStart.Before(start) {
				winStart = start
			}

			vid := v.ID
			batch, err := c.fetchWithRetry(ctx, func() ([]sascar.Position, error) {
				return c.feed.FetchHistory(ctx, vid, winStart, winEnd)
			})
			if err != nil {
				return sum, err
			}

			// History records omit the plate; carry the stored one so the
			// reference row stays populated.
			for i := range batch {
				batch[i].VehicleID = vid
				if batch[i].Plate == "" {
					batch[i].Plate = v.Plate
				}
			}

			sum.Batches++
			sum.Received += len(batch)
			saved, err := c.savePositions(batch)
			sum.Saved += saved
			if err != nil {
				return sum, err
			}

			vlog.WithFields(log.Fields{
				"from":  winStart.Format(time.RFC3339),
				"to":    winEnd.Format(time.RFC3339),
				"saved": saved,
			}).Debug("Backfill window persisted")

			winEnd = winStart
			c.pause(interWindowPause)
		}

		c.pause(interVehiclePause)
	}

	logger.WithFields(log.Fields{
		"vehicles": len(vehicles),
		"received": sum.Received,
		"saved":    sum.Saved,
	}).Info("Backfill finished")
	return sum, nil
}

// backfillTargets resolves which vehicles to replay. When the store
// knows no vehicles yet, the registered list is fetched from the feed
// and persisted first.
func (c *Controller) backfillTargets(ctx context.Context, vehicleID int64) ([]models.Vehicle, error) {
	if vehicleID > 0 {
		return []models.Vehicle{{ID: vehicleID}}, nil
	}

	vehicles, err := c.vehicles.List()
	if err != nil {
		return nil, err
	}
	if len(vehicles) > 0 {
		return vehicles, nil
	}

	fetched, err := c.fetchVehiclesWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range fetched {
		if err := c.vehicles.Upsert(v); err != nil {
			return nil, err
		}
	}
	return fetched, nil
}

// savePositions filters and persists one batch. Candidates are sorted
// chronologically first so the save filter sees them in order.
func (c *Controller) savePositions(batch []sascar.Position) (int, error) {
	sort.Slice(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})

	saved := 0
	for _, rec := range batch {
		p := models.RawPosition{
			VehicleID:  rec.VehicleID,
			Timestamp:  rec.Timestamp.UTC(),
			Latitude:   rec.Latitude,
			Longitude:  rec.Longitude,
			Odometer:   rec.Odometer,
			IgnitionOn: rec.IgnitionOn,
			SpeedKmh:   rec.SpeedKmh,
		}

		// Opportunistic reference-data update: plate when supplied,
		// last-known odometer always.
		if err := c.vehicles.Upsert(models.Vehicle{
			ID:           rec.VehicleID,
			Plate:        rec.Plate,
			LastOdometer: rec.Odometer,
		}); err != nil {
			return saved, err
		}

		last, ok := c.lastSaved[p.VehicleID]
		if !ok {
			stored, err := c.positions.LastSaved(p.VehicleID)
			if err != nil {
				return saved, err
			}
			last = stored
			c.lastSaved[p.VehicleID] = last
		}

		if !ShouldSave(p, last) {
			continue
		}

		inserted, err := c.positions.Insert(p)
		if err != nil {
			return saved, err
		}
		if !inserted {
			// Row already stored by an earlier run for the same instant.
			continue
		}

		saved++
		cp := p
		c.lastSaved[p.VehicleID] = &cp
	}

	return saved, nil
}

// fetchWithRetry wraps one feed call in the bounded retry loop.
// Authentication failures abort immediately; transient failures back
// off until the consecutive-failure budget runs out.
func (c *Controller) fetchWithRetry(ctx context.Context, fn func() ([]sascar.Position, error)) ([]sascar.Position, error) {
	for {
		batch, err := fn()
		if err == nil {
			c.retrier.Success()
			return batch, nil
		}
		if errors.Is(err, sascar.ErrAuth) {
			return nil, err
		}
		if !sascar.IsTransient(err) {
			return nil, err
		}

		log.WithFields(log.Fields{
			"component": "ingest",
			"failures":  c.retrier.Failures() + 1,
			"max":       c.retrier.MaxFailures,
		}).WithError(err).Warn("Feed call failed")

		if !c.retrier.Failure() {
			return nil, fmt.Errorf("%w: %v", ErrRunAborted, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

func (c *Controller) fetchVehiclesWithRetry(ctx context.Context) ([]models.Vehicle, error) {
	for {
		vehicles, err := c.feed.FetchVehicles(ctx)
		if err == nil {
			c.retrier.Success()
			return vehicles, nil
		}
		if errors.Is(err, sascar.ErrAuth) || !sascar.IsTransient(err) {
			return nil, err
		}
		if !c.retrier.Failure() {
			return nil, fmt.Errorf("%w: %v", ErrRunAborted, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}
