package models

// POIType classifies a point of interest by its operational role.
type POIType string

// POI type constants
const (
	POITypeBase           POIType = "Base"
	POITypeGranja         POIType = "Granja"
	POITypeOficina        POIType = "Oficina"
	POITypeConcessionaria POIType = "Concessionaria"
	POITypePosto          POIType = "Posto"
)

// POI represents a circular geofence around a fixed operational location.
// POIs are immutable reference data seeded by external import tooling.
type POI struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"nome"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
	RadiusM   float64 `json:"radius_m" db:"raio_m"`
	Type      POIType `json:"type" db:"tipo"`
}

// IsValidPOIType checks if a POI type is one of the known constants
func IsValidPOIType(t POIType) bool {
	switch t {
	case POITypeBase, POITypeGranja, POITypeOficina, POITypeConcessionaria, POITypePosto:
		return true
	default:
		return false
	}
}
