package trips

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/loglive/telemetry-backend-go/internal/geofence"
	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/repository"
)

// TransitTimeout is the fixed inactivity threshold that closes an open
// transit as Indefinida. It is measured against the last received
// position, never the wall clock, since ingestion is batch-delayed.
const TransitTimeout = 30 * time.Minute

// Engine turns a vehicle's ordered raw-position stream into classified
// trip records via a per-vehicle state machine: AtPOI while the vehicle
// sits inside a geofence, InTransit between departures and arrivals.
type Engine struct {
	index     *geofence.Index
	positions *repository.PositionRepository
	trips     *repository.TripRepository
}

// NewEngine creates a trip segmentation engine over the given geofence
// index and stores.
func NewEngine(index *geofence.Index, positions *repository.PositionRepository, trips *repository.TripRepository) *Engine {
	return &Engine{index: index, positions: positions, trips: trips}
}

// vehicleContext is the explicit per-vehicle FSM state. It is rebuilt
// from persisted data at the start of every run, so a killed run resumes
// without reprocessing closed trips.
type vehicleContext struct {
	vehicleID int64

	// dedupe marks a reprocessing run: re-derived legs that intersect a
	// stored trip are skipped instead of inserted, so reprocessing can
	// never duplicate or rewrite history.
	dedupe bool

	atPOI *models.POI // non-nil when state is AtPOI

	inTransit bool
	origin    *models.POI // nil while origin is unknown
	departure models.RawPosition
	lastSeen  models.RawPosition
}

// ProcessVehicle consumes the vehicle's unconsumed positions in
// timestamp order, writes every trip that closes and advances the
// processing cursor past it. A transit still open at the end of the
// stream stays unconsumed; the next run picks it up again. Returns the
// number of trips written.
func (e *Engine) ProcessVehicle(vehicleID int64) (int, error) {
	cursor, _, err := e.trips.Cursor(vehicleID)
	if err != nil {
		return 0, err
	}
	return e.run(vehicleID, cursor, false)
}

// ReprocessVehicle re-derives trips from every position after since,
// ignoring the cursor. It exists for positions that land behind the
// cursor, e.g. a backfill fetched after incremental processing already
// passed that window. Trips are never deleted or overwritten: a
// re-derived leg overlapping a stored trip is skipped, and since
// segmentation is deterministic an unchanged window rebuilds the exact
// trips already stored. Returns the number of trips written.
func (e *Engine) ReprocessVehicle(vehicleID int64, since time.Time) (int, error) {
	return e.run(vehicleID, since, true)
}

func (e *Engine) run(vehicleID int64, after time.Time, dedupe bool) (int, error) {
	stream, err := e.positions.RangeAfter(vehicleID, after)
	if err != nil {
		return 0, err
	}
	if len(stream) == 0 {
		return 0, nil
	}

	ctx, err := e.initialState(vehicleID, stream[0])
	if err != nil {
		return 0, err
	}
	ctx.dedupe = dedupe

	written := 0
	for _, pos := range stream[1:] {
		closed, err := e.step(ctx, pos)
		if err != nil {
			return written, err
		}
		written += closed
	}

	return written, nil
}

// initialState derives the FSM state from the earliest unconsumed
// position, using the last persisted trip to recover the origin when
// the vehicle is already mid-transit at resume time.
func (e *Engine) initialState(vehicleID int64, first models.RawPosition) (*vehicleContext, error) {
	ctx := &vehicleContext{vehicleID: vehicleID}

	if poi := e.index.Locate(first.Latitude, first.Longitude); poi != nil {
		ctx.atPOI = poi
		return ctx, nil
	}

	ctx.inTransit = true
	ctx.departure = first
	ctx.lastSeen = first

	// The previous run may have closed an arrival right before this
	// departure; its destination is our origin as long as no inactivity
	// gap separates the two. Bounding the lookup at the first position
	// keeps it correct when reprocessing starts behind newer trips.
	last, err := e.trips.LastTripBefore(vehicleID, first.Timestamp)
	if err != nil {
		return nil, err
	}
	if last != nil && last.DestPOIID != nil && first.Timestamp.Sub(last.EndTime) <= TransitTimeout {
		ctx.origin = e.index.POIByID(*last.DestPOIID)
	}
	if ctx.origin == nil {
		log.WithFields(log.Fields{
			"component": "trips",
			"vehicle":   vehicleID,
		}).Warn("Stream starts mid-transit; origin unknown")
	}

	return ctx, nil
}

// step advances the FSM by one position and returns how many trips it
// closed (0 or 1).
func (e *Engine) step(ctx *vehicleContext, pos models.RawPosition) (int, error) {
	if !ctx.inTransit {
		// AtPOI: leaving every geofence starts a transit.
		poi := e.index.Locate(pos.Latitude, pos.Longitude)
		if poi != nil {
			ctx.atPOI = poi
			return 0, nil
		}
		ctx.inTransit = true
		ctx.origin = ctx.atPOI
		ctx.atPOI = nil
		ctx.departure = pos
		ctx.lastSeen = pos
		return 0, nil
	}

	// InTransit: an inactivity gap closes the trip without a
	// destination before the new position is considered.
	if pos.Timestamp.Sub(ctx.lastSeen.Timestamp) > TransitTimeout {
		closed, err := e.closeTrip(ctx, nil, ctx.lastSeen)
		if err != nil {
			return 0, err
		}
		e.restart(ctx, pos)
		return closed, nil
	}

	if poi := e.index.Locate(pos.Latitude, pos.Longitude); poi != nil {
		closed, err := e.closeTrip(ctx, poi, pos)
		if err != nil {
			return 0, err
		}
		ctx.inTransit = false
		ctx.origin = nil
		ctx.atPOI = poi
		return closed, nil
	}

	ctx.lastSeen = pos
	return 0, nil
}

// restart re-derives the state from the first position after a timeout
// closure, exactly as if the stream began there.
func (e *Engine) restart(ctx *vehicleContext, pos models.RawPosition) {
	ctx.inTransit = false
	ctx.origin = nil
	ctx.atPOI = nil

	if poi := e.index.Locate(pos.Latitude, pos.Longitude); poi != nil {
		ctx.atPOI = poi
		return
	}
	ctx.inTransit = true
	ctx.departure = pos
	ctx.lastSeen = pos
}

// closeTrip persists one finished leg and advances the cursor in the
// same transaction, returning how many rows it wrote (0 or 1). dest is
// nil for timeout closures; end is the arrival position or the last
// position seen before the gap. In dedupe mode a leg intersecting a
// stored trip is dropped so reprocessing never rewrites history.
func (e *Engine) closeTrip(ctx *vehicleContext, dest *models.POI, end models.RawPosition) (int, error) {
	if ctx.dedupe {
		exists, err := e.trips.Overlaps(ctx.vehicleID, ctx.departure.Timestamp, end.Timestamp)
		if err != nil {
			return 0, fmt.Errorf("close trip for vehicle %d: %w", ctx.vehicleID, err)
		}
		if exists {
			log.WithFields(log.Fields{
				"component": "trips",
				"vehicle":   ctx.vehicleID,
				"start":     ctx.departure.Timestamp,
				"end":       end.Timestamp,
			}).Debug("Leg already covered by a stored trip; skipping")
			return 0, nil
		}
	}

	trip := models.Trip{
		ID:        uuid.NewString(),
		VehicleID: ctx.vehicleID,
		StartTime: ctx.departure.Timestamp,
		EndTime:   end.Timestamp,
		Category:  Classify(ctx.origin, dest),
	}

	if ctx.origin != nil {
		id := ctx.origin.ID
		trip.OriginPOIID = &id
	} else {
		trip.UnknownOrigin = true
	}
	if dest != nil {
		id := dest.ID
		trip.DestPOIID = &id
	}

	// Odometer delta between the departure and closing positions. A
	// non-increasing counter means a sensor reset: flag it, record zero
	// distance and keep the trip.
	delta := end.Odometer - ctx.departure.Odometer
	if delta > 0 {
		trip.DistanceKm = delta
	} else {
		trip.OdometerAnomaly = true
	}

	if err := e.trips.InsertWithCursor(trip); err != nil {
		return 0, fmt.Errorf("close trip for vehicle %d: %w", ctx.vehicleID, err)
	}

	log.WithFields(log.Fields{
		"component": "trips",
		"vehicle":   ctx.vehicleID,
		"category":  trip.Category,
		"dist_km":   trip.DistanceKm,
	}).Info("Trip closed")
	return 1, nil
}
