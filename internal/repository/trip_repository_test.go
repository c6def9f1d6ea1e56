package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglive/telemetry-backend-go/internal/models"
)

func makeTrip(vehicleID int64, start time.Time, category models.TripCategory, dist float64) models.Trip {
	origin, dest := int64(1), int64(2)
	return models.Trip{
		ID:          uuid.NewString(),
		VehicleID:   vehicleID,
		StartTime:   start,
		EndTime:     start.Add(30 * time.Minute),
		OriginPOIID: &origin,
		DestPOIID:   &dest,
		DistanceKm:  dist,
		Category:    category,
	}
}

func TestTripInsertAndListByVehicle(t *testing.T) {
	r := NewTripRepository(newTestDB(t))
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, r.Insert(makeTrip(1, t0.Add(time.Hour), models.CategoryApoio, 30)))
	require.NoError(t, r.Insert(makeTrip(1, t0, models.CategoryProdutiva, 50)))
	require.NoError(t, r.Insert(makeTrip(2, t0, models.CategoryIndefinida, 0)))

	trips, err := r.ListByVehicle(1)
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, models.CategoryProdutiva, trips[0].Category, "ordered by start time")
	assert.Equal(t, models.CategoryApoio, trips[1].Category)
	require.NotNil(t, trips[0].OriginPOIID)
	assert.EqualValues(t, 1, *trips[0].OriginPOIID)
}

func TestTripListFilters(t *testing.T) {
	db := newTestDB(t)
	r := NewTripRepository(db)
	vehicles := NewVehicleRepository(db)
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, vehicles.Upsert(models.Vehicle{ID: 1, Plate: "ABC1D23"}))
	require.NoError(t, r.Insert(makeTrip(1, t0, models.CategoryProdutiva, 50)))
	require.NoError(t, r.Insert(makeTrip(1, t0.Add(2*time.Hour), models.CategoryApoio, 30)))
	require.NoError(t, r.Insert(makeTrip(2, t0, models.CategoryProdutiva, 40)))

	trips, total, err := r.List(models.TripFilter{Category: "Produtiva"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, trips, 2)

	trips, total, err = r.List(models.TripFilter{Plate: "ABC1D23"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, trip := range trips {
		assert.EqualValues(t, 1, trip.VehicleID)
	}

	_, total, err = r.List(models.TripFilter{StartTime: t0.Add(time.Hour).Unix()})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	trips, total, err = r.List(models.TripFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, trips, 2)
}

func TestTripListRange(t *testing.T) {
	r := NewTripRepository(newTestDB(t))
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	require.NoError(t, r.Insert(makeTrip(1, t0, models.CategoryProdutiva, 50)))
	require.NoError(t, r.Insert(makeTrip(1, t0.Add(time.Hour), models.CategoryApoio, 30)))
	require.NoError(t, r.Insert(makeTrip(2, t0.Add(3*time.Hour), models.CategoryIndefinida, 0)))

	trips, err := r.ListRange(t0.Unix(), t0.Add(2*time.Hour).Unix())
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, models.CategoryProdutiva, trips[0].Category)
	assert.Equal(t, models.CategoryApoio, trips[1].Category)
}

func TestTripCursor(t *testing.T) {
	r := NewTripRepository(newTestDB(t))
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	_, ok, err := r.Cursor(1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.SetCursor(1, ts))
	got, ok, err := r.Cursor(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(ts))

	// The cursor never moves backwards.
	require.NoError(t, r.SetCursor(1, ts.Add(-time.Hour)))
	got, _, err = r.Cursor(1)
	require.NoError(t, err)
	assert.True(t, got.Equal(ts))

	require.NoError(t, r.SetCursor(1, ts.Add(time.Hour)))
	got, _, err = r.Cursor(1)
	require.NoError(t, err)
	assert.True(t, got.Equal(ts.Add(time.Hour)))
}

func TestTripInsertWithCursorIsAtomic(t *testing.T) {
	r := NewTripRepository(newTestDB(t))
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	trip := makeTrip(1, t0, models.CategoryProdutiva, 50)
	require.NoError(t, r.InsertWithCursor(trip))

	got, ok, err := r.Cursor(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(trip.EndTime))

	// Reinserting the same primary key fails and must not advance the
	// cursor.
	later := trip
	later.EndTime = trip.EndTime.Add(time.Hour)
	require.Error(t, r.InsertWithCursor(later))

	got, _, err = r.Cursor(1)
	require.NoError(t, err)
	assert.True(t, got.Equal(trip.EndTime))
}

func TestTripLastTripBefore(t *testing.T) {
	r := NewTripRepository(newTestDB(t))
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	last, err := r.LastTripBefore(1, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, last)

	require.NoError(t, r.Insert(makeTrip(1, t0, models.CategoryProdutiva, 50)))
	require.NoError(t, r.Insert(makeTrip(1, t0.Add(2*time.Hour), models.CategoryApoio, 30)))

	last, err = r.LastTripBefore(1, t0.Add(24*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.CategoryApoio, last.Category)

	// Bounded lookup skips trips ending after the given instant.
	last, err = r.LastTripBefore(1, t0.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, models.CategoryProdutiva, last.Category)

	last, err = r.LastTripBefore(1, t0.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestTripOverlaps(t *testing.T) {
	r := NewTripRepository(newTestDB(t))
	t0 := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	// Stored trip covers [t0, t0+30m].
	require.NoError(t, r.Insert(makeTrip(1, t0, models.CategoryProdutiva, 50)))

	cases := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"identical interval", t0, t0.Add(30 * time.Minute), true},
		{"straddles the start", t0.Add(-10 * time.Minute), t0.Add(10 * time.Minute), true},
		{"straddles the end", t0.Add(20 * time.Minute), t0.Add(50 * time.Minute), true},
		{"contained inside", t0.Add(5 * time.Minute), t0.Add(10 * time.Minute), true},
		{"touching the end", t0.Add(30 * time.Minute), t0.Add(time.Hour), true},
		{"strictly before", t0.Add(-time.Hour), t0.Add(-time.Minute), false},
		{"strictly after", t0.Add(31 * time.Minute), t0.Add(time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.Overlaps(1, tc.start, tc.end)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	// Other vehicles are independent.
	got, err := r.Overlaps(2, t0, t0.Add(30*time.Minute))
	require.NoError(t, err)
	assert.False(t, got)
}
