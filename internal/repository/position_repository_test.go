package repository

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglive/telemetry-backend-go/internal/database"
	"github.com/loglive/telemetry-backend-go/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.RunMigrations(db))
	return db
}

func TestPositionInsertDeduplicates(t *testing.T) {
	r := NewPositionRepository(newTestDB(t))
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	p := models.RawPosition{VehicleID: 1, Timestamp: ts, Latitude: -23.5, Longitude: -51.0, Odometer: 100, IgnitionOn: true}

	inserted, err := r.Insert(p)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Same vehicle and instant: silently ignored.
	inserted, err = r.Insert(p)
	require.NoError(t, err)
	assert.False(t, inserted)

	// Same instant for another vehicle is a distinct row.
	p.VehicleID = 2
	inserted, err = r.Insert(p)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestPositionLastSaved(t *testing.T) {
	r := NewPositionRepository(newTestDB(t))
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	last, err := r.LastSaved(1)
	require.NoError(t, err)
	assert.Nil(t, last)

	for i, odo := range []float64{100, 110, 120} {
		_, err := r.Insert(models.RawPosition{
			VehicleID: 1,
			Timestamp: ts.Add(time.Duration(i) * 10 * time.Minute),
			Latitude:  -23.5, Longitude: -51.0,
			Odometer: odo, IgnitionOn: true,
		})
		require.NoError(t, err)
	}

	last, err = r.LastSaved(1)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, 120.0, last.Odometer)
	assert.True(t, last.Timestamp.Equal(ts.Add(20*time.Minute)))
}

func TestPositionRangeAfterIsStrict(t *testing.T) {
	r := NewPositionRepository(newTestDB(t))
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_, err := r.Insert(models.RawPosition{
			VehicleID: 1,
			Timestamp: ts.Add(time.Duration(i) * 10 * time.Minute),
			Latitude:  -23.5, Longitude: -51.0,
			Odometer: float64(100 + i), IgnitionOn: true,
		})
		require.NoError(t, err)
	}

	got, err := r.RangeAfter(1, ts)
	require.NoError(t, err)
	require.Len(t, got, 2, "the cursor position itself is excluded")
	assert.True(t, got[0].Timestamp.Equal(ts.Add(10*time.Minute)))
	assert.True(t, got[1].Timestamp.Equal(ts.Add(20*time.Minute)))

	got, err = r.RangeAfter(1, ts.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}
