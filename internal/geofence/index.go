package geofence

import (
	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/spatial"
)

// Index answers point-in-geofence queries against the fixed POI set.
// The fleet operates against at most a few hundred POIs, so a linear
// scan per query is sufficient.
type Index struct {
	pois []models.POI
}

// NewIndex creates an index over the given POIs. The slice is not copied;
// POIs are immutable reference data.
func NewIndex(pois []models.POI) *Index {
	return &Index{pois: pois}
}

// Locate returns the POI containing the given coordinate, or nil when the
// point is outside every geofence. A point exactly on a POI boundary is
// inside. When several POIs contain the point, the closest center wins;
// ties go to the smallest radius, then the lowest POI id.
func (ix *Index) Locate(lat, lon float64) *models.POI {
	var best *models.POI
	var bestDist float64

	for i := range ix.pois {
		poi := &ix.pois[i]
		dist := spatial.HaversineDistance(lat, lon, poi.Latitude, poi.Longitude)
		if dist > poi.RadiusM {
			continue
		}
		if best == nil || closer(dist, poi, bestDist, best) {
			best = poi
			bestDist = dist
		}
	}

	return best
}

// POIByID returns the indexed POI with the given id, or nil.
func (ix *Index) POIByID(id int64) *models.POI {
	for i := range ix.pois {
		if ix.pois[i].ID == id {
			return &ix.pois[i]
		}
	}
	return nil
}

func closer(dist float64, poi *models.POI, bestDist float64, best *models.POI) bool {
	if dist != bestDist {
		return dist < bestDist
	}
	if poi.RadiusM != best.RadiusM {
		return poi.RadiusM < best.RadiusM
	}
	return poi.ID < best.ID
}
