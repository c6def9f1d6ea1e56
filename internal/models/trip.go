package models

import "time"

// TripCategory classifies one origin-to-destination leg for billing
// reconciliation.
type TripCategory string

// Trip category constants
const (
	CategoryProdutiva  TripCategory = "Produtiva"
	CategoryApoio      TripCategory = "Apoio"
	CategoryManutencao TripCategory = "Manutencao"
	CategoryIndefinida TripCategory = "Indefinida"
)

// Trip represents a classified vehicle leg between two POI visits.
// Trips are permanent and append-only: once written they are never
// mutated or deleted, and no two trips for the same vehicle overlap.
type Trip struct {
	ID        string    `json:"id" db:"id"`
	VehicleID int64     `json:"vehicle_id" db:"id_veiculo"`
	StartTime time.Time `json:"start_time" db:"data_inicio"`
	EndTime   time.Time `json:"end_time" db:"data_fim"`

	// Origin/destination POIs; nil when unknown (mid-transit stream start
	// or timeout closure respectively).
	OriginPOIID *int64 `json:"origin_poi_id,omitempty" db:"poi_origem"`
	DestPOIID   *int64 `json:"dest_poi_id,omitempty" db:"poi_destino"`

	DistanceKm float64      `json:"distance_km" db:"dist_km"`
	Category   TripCategory `json:"category" db:"categoria"`

	// Data-quality flags
	OdometerAnomaly bool `json:"odometer_anomaly" db:"odometro_anomalo"`
	UnknownOrigin   bool `json:"unknown_origin" db:"origem_desconhecida"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Duration returns the trip duration.
func (t Trip) Duration() time.Duration {
	return t.EndTime.Sub(t.StartTime)
}

// TripFilter represents filter parameters for querying trips
type TripFilter struct {
	VehicleID int64  `form:"vehicleId"`
	Plate     string `form:"plate"`
	Category  string `form:"category"`
	StartTime int64  `form:"startTime"` // Unix timestamp
	EndTime   int64  `form:"endTime"`   // Unix timestamp
	Page      int    `form:"page"`
	PageSize  int    `form:"pageSize"`
}

// TripsResponse represents a paginated response of trips
type TripsResponse struct {
	Data       []Trip `json:"data"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
}
