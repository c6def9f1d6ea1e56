package service

import (
	"fmt"
	"time"

	"github.com/loglive/telemetry-backend-go/internal/models"
	"github.com/loglive/telemetry-backend-go/internal/repository"
	"github.com/loglive/telemetry-backend-go/internal/stats"
)

// StatsService aggregates closed trips into fleet-level summaries.
type StatsService struct {
	trips *repository.TripRepository
}

// NewStatsService creates a new stats service
func NewStatsService(trips *repository.TripRepository) *StatsService {
	return &StatsService{trips: trips}
}

// GetFleetStats aggregates trips starting in [startTime, endTime).
// A zero endTime means now.
func (s *StatsService) GetFleetStats(startTime, endTime int64) (*models.FleetStats, error) {
	if startTime < 0 {
		startTime = 0
	}
	if endTime <= 0 {
		endTime = time.Now().Unix()
	}
	if startTime > endTime {
		return nil, fmt.Errorf("start time must be before end time")
	}

	trips, err := s.trips.ListRange(startTime, endTime)
	if err != nil {
		return nil, fmt.Errorf("failed to load trips for stats: %w", err)
	}

	result := &models.FleetStats{StartTime: startTime, EndTime: endTime}

	vehicles := make(map[int64]struct{})
	byCategory := make(map[models.TripCategory][]models.Trip)
	for _, t := range trips {
		result.TripCount++
		vehicles[t.VehicleID] = struct{}{}
		if t.OdometerAnomaly {
			result.OdometerAnomalies++
		}
		if t.UnknownOrigin {
			result.UnknownOrigins++
		}
		byCategory[t.Category] = append(byCategory[t.Category], t)
	}
	result.VehicleCount = len(vehicles)

	// Stable category order for the response.
	order := []models.TripCategory{
		models.CategoryProdutiva,
		models.CategoryApoio,
		models.CategoryManutencao,
		models.CategoryIndefinida,
	}
	for _, cat := range order {
		group := byCategory[cat]
		if len(group) == 0 {
			continue
		}
		cs := summarizeCategory(cat, group)
		result.TotalKm += cs.TotalKm
		result.ByCategory = append(result.ByCategory, cs)
	}

	return result, nil
}

func summarizeCategory(cat models.TripCategory, group []models.Trip) models.CategoryStats {
	cs := models.CategoryStats{Category: cat, TripCount: len(group)}

	var distances []float64
	var minutes []float64
	for _, t := range group {
		// Anomalous trips carry a zero distance and stay out of the
		// distance distribution.
		if !t.OdometerAnomaly {
			distances = append(distances, t.DistanceKm)
		}
		minutes = append(minutes, t.Duration().Minutes())
	}

	cs.TotalKm = stats.Sum(distances)
	cs.MeanKm = stats.Mean(distances)
	cs.MedianKm = stats.Median(distances)
	cs.P90Km = stats.Percentile(distances, 90)
	cs.MaxKm = stats.Max(distances)
	cs.MeanMinutes = stats.Mean(minutes)

	return cs
}
