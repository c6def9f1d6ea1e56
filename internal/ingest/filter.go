package ingest

import (
	"time"

	"github.com/loglive/telemetry-backend-go/internal/models"
)

// SaveInterval is the steady-state sampling floor. Positions closer
// together than this are dropped unless the ignition state changed,
// bounding storage to roughly 288 rows per vehicle per day.
const SaveInterval = 5 * time.Minute

// ShouldSave applies the save filter to candidate p against the last
// saved position for the same vehicle (nil when the vehicle has no
// stored rows yet):
//
//  1. exact duplicates are rejected;
//  2. ignition transitions are always kept, they mark trip boundaries;
//  3. otherwise the candidate must be at least SaveInterval away.
func ShouldSave(p models.RawPosition, last *models.RawPosition) bool {
	if last == nil {
		return true
	}
	if p.SameSample(*last) {
		return false
	}
	if p.IgnitionOn != last.IgnitionOn {
		return true
	}

	elapsed := p.Timestamp.Sub(last.Timestamp)
	if elapsed < 0 {
		elapsed = -elapsed
	}
	return elapsed >= SaveInterval
}
