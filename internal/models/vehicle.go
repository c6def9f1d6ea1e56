package models

// Vehicle represents a fleet vehicle known to the system. Identity is the
// vendor-assigned Sascar ID; the plate is back-filled opportunistically
// from feed metadata.
type Vehicle struct {
	ID           int64   `json:"id" db:"id_sascar"`
	Plate        string  `json:"plate,omitempty" db:"placa"`
	LastOdometer float64 `json:"last_odometer,omitempty" db:"ultimo_odometro"`
}
