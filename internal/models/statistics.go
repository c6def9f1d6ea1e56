package models

// CategoryStats aggregates closed trips of one category over a time
// window.
type CategoryStats struct {
	Category    TripCategory `json:"category"`
	TripCount   int          `json:"trip_count"`
	TotalKm     float64      `json:"total_km"`
	MeanKm      float64      `json:"mean_km"`
	MedianKm    float64      `json:"median_km"`
	P90Km       float64      `json:"p90_km"`
	MaxKm       float64      `json:"max_km"`
	MeanMinutes float64      `json:"mean_minutes"`
}

// FleetStats summarizes fleet activity over a time window. Distance
// aggregates exclude odometer-anomalous trips; those are only counted.
type FleetStats struct {
	StartTime int64 `json:"start_time"`
	EndTime   int64 `json:"end_time"`

	TripCount    int     `json:"trip_count"`
	VehicleCount int     `json:"vehicle_count"`
	TotalKm      float64 `json:"total_km"`

	// Data-quality counters
	OdometerAnomalies int `json:"odometer_anomalies"`
	UnknownOrigins    int `json:"unknown_origins"`

	ByCategory []CategoryStats `json:"by_category"`
}
