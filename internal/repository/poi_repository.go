package repository

import (
	"database/sql"
	"fmt"

	"github.com/loglive/telemetry-backend-go/internal/models"
)

// POIRepository handles database operations for points of interest.
// POIs are written by external seed/import tooling; the core only reads.
type POIRepository struct {
	db *sql.DB
}

// NewPOIRepository creates a new POI repository
func NewPOIRepository(db *sql.DB) *POIRepository {
	return &POIRepository{db: db}
}

// List returns all registered POIs ordered by id.
func (r *POIRepository) List() ([]models.POI, error) {
	rows, err := r.db.Query(`
		SELECT id, nome, latitude, longitude, raio_m, tipo
		FROM pois
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pois: %w", err)
	}
	defer rows.Close()

	var pois []models.POI
	for rows.Next() {
		var p models.POI
		if err := rows.Scan(&p.ID, &p.Name, &p.Latitude, &p.Longitude, &p.RadiusM, &p.Type); err != nil {
			return nil, fmt.Errorf("failed to scan poi: %w", err)
		}
		pois = append(pois, p)
	}

	return pois, rows.Err()
}

// Insert registers a POI. Exposed for seed tooling and tests; the
// ingestion and trip engines never call it.
func (r *POIRepository) Insert(p models.POI) (int64, error) {
	if p.RadiusM <= 0 {
		return 0, fmt.Errorf("poi %q: radius must be > 0", p.Name)
	}
	if !models.IsValidPOIType(p.Type) {
		return 0, fmt.Errorf("poi %q: unknown type %q", p.Name, p.Type)
	}

	res, err := r.db.Exec(`
		INSERT INTO pois (nome, latitude, longitude, raio_m, tipo)
		VALUES (?, ?, ?, ?, ?)
	`, p.Name, p.Latitude, p.Longitude, p.RadiusM, string(p.Type))
	if err != nil {
		return 0, fmt.Errorf("failed to insert poi: %w", err)
	}
	return res.LastInsertId()
}
