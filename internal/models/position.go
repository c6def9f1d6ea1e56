package models

import "time"

// RawPosition represents one stored GPS/ignition/odometer sample for a
// vehicle. Rows are append-only and retained for a rolling window owned
// by the storage housekeeping job; the processing cursor guarantees a
// trip never depends on a purged row.
type RawPosition struct {
	ID         int64     `json:"id" db:"id"`
	VehicleID  int64     `json:"vehicle_id" db:"id_veiculo"`
	Timestamp  time.Time `json:"timestamp" db:"data_hora"`
	Latitude   float64   `json:"latitude" db:"latitude"`
	Longitude  float64   `json:"longitude" db:"longitude"`
	Odometer   float64   `json:"odometer" db:"odometro"` // kilometers
	IgnitionOn bool      `json:"ignition_on" db:"ignicao"`
	SpeedKmh   float64   `json:"speed_kmh" db:"velocidade"`
}

// SameSample reports whether two positions are exact duplicates
// (same timestamp, coordinates and odometer reading).
func (p RawPosition) SameSample(other RawPosition) bool {
	return p.Timestamp.Equal(other.Timestamp) &&
		p.Latitude == other.Latitude &&
		p.Longitude == other.Longitude &&
		p.Odometer == other.Odometer
}

// PositionFilter represents filter parameters for querying raw positions
type PositionFilter struct {
	VehicleID int64 `form:"vehicleId"`
	StartTime int64 `form:"startTime"` // Unix timestamp
	EndTime   int64 `form:"endTime"`   // Unix timestamp
	Page      int   `form:"page"`
	PageSize  int   `form:"pageSize"`
}
