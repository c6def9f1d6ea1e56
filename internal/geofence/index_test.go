package geofence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/spatial"
)

func TestLocateInsideAndOutside(t *testing.T) {
	// ~0.027 degrees of latitude is roughly 3km.
	base := models.POI{ID: 1, Name: "Base Maringa", Latitude: -23.5, Longitude: -51.0, RadiusM: 3000, Type: models.POITypeBase}
	ix := NewIndex([]models.POI{base})

	tests := []struct {
		name string
		lat  float64
		lon  float64
		want bool
	}{
		{"well inside", -23.5225, -51.0, true},
		{"just outside", -23.5290, -51.0, false},
		{"far away", -24.5, -51.0, false},
		{"at center", -23.5, -51.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ix.Locate(tt.lat, tt.lon)
			if tt.want {
				require.NotNil(t, got)
				assert.Equal(t, base.ID, got.ID)
			} else {
				assert.Nil(t, got)
			}
		})
	}
}

func TestLocateBoundaryIsInside(t *testing.T) {
	lat, lon := -23.53, -51.02
	poi := models.POI{ID: 7, Name: "Granja Norte", Latitude: -23.5, Longitude: -51.0, RadiusM: 0, Type: models.POITypeGranja}

	// Set the radius to the exact distance of the query point, putting it
	// on the boundary.
	poi.RadiusM = spatial.HaversineDistance(lat, lon, poi.Latitude, poi.Longitude)

	ix := NewIndex([]models.POI{poi})
	got := ix.Locate(lat, lon)
	require.NotNil(t, got)
	assert.Equal(t, poi.ID, got.ID)
}

func TestLocateOverlapClosestCenterWins(t *testing.T) {
	near := models.POI{ID: 1, Name: "Granja A", Latitude: -23.50, Longitude: -51.0, RadiusM: 5000, Type: models.POITypeGranja}
	far := models.POI{ID: 2, Name: "Granja B", Latitude: -23.53, Longitude: -51.0, RadiusM: 5000, Type: models.POITypeGranja}
	ix := NewIndex([]models.POI{far, near})

	got := ix.Locate(-23.505, -51.0)
	require.NotNil(t, got)
	assert.Equal(t, near.ID, got.ID)
}

func TestLocateTieBreaks(t *testing.T) {
	// Same center, so the query distance is identical for both.
	small := models.POI{ID: 5, Name: "Posto interno", Latitude: -23.5, Longitude: -51.0, RadiusM: 500, Type: models.POITypePosto}
	big := models.POI{ID: 3, Name: "Base externa", Latitude: -23.5, Longitude: -51.0, RadiusM: 2000, Type: models.POITypeBase}

	ix := NewIndex([]models.POI{big, small})
	got := ix.Locate(-23.501, -51.0)
	require.NotNil(t, got)
	assert.Equal(t, small.ID, got.ID, "smaller radius wins on distance tie")

	// Identical radius as well: lowest id wins.
	twinA := models.POI{ID: 10, Name: "Twin A", Latitude: -23.5, Longitude: -51.0, RadiusM: 1000, Type: models.POITypeGranja}
	twinB := models.POI{ID: 11, Name: "Twin B", Latitude: -23.5, Longitude: -51.0, RadiusM: 1000, Type: models.POITypeGranja}
	ix = NewIndex([]models.POI{twinB, twinA})
	got = ix.Locate(-23.5, -51.0)
	require.NotNil(t, got)
	assert.Equal(t, twinA.ID, got.ID)
}

func TestLocateDeterministic(t *testing.T) {
	pois := []models.POI{
		{ID: 1, Latitude: -23.5, Longitude: -51.0, RadiusM: 3000, Type: models.POITypeBase},
		{ID: 2, Latitude: -23.51, Longitude: -51.0, RadiusM: 3000, Type: models.POITypeGranja},
		{ID: 3, Latitude: -23.52, Longitude: -51.0, RadiusM: 3000, Type: models.POITypeGranja},
	}
	ix := NewIndex(pois)

	first := ix.Locate(-23.511, -51.0)
	require.NotNil(t, first)
	for i := 0; i < 50; i++ {
		got := ix.Locate(-23.511, -51.0)
		require.NotNil(t, got)
		assert.Equal(t, first.ID, got.ID)
	}
}

func TestPOIByID(t *testing.T) {
	pois := []models.POI{
		{ID: 1, Name: "Base", Latitude: -23.5, Longitude: -51.0, RadiusM: 300, Type: models.POITypeBase},
		{ID: 2, Name: "Granja", Latitude: -23.6, Longitude: -51.0, RadiusM: 300, Type: models.POITypeGranja},
	}
	ix := NewIndex(pois)

	got := ix.POIByID(2)
	require.NotNil(t, got)
	assert.Equal(t, "Granja", got.Name)
	assert.Nil(t, ix.POIByID(99))
}
