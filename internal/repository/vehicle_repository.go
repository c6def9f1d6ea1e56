package repository

import (
	"database/sql"
	"fmt"

	"github.com/loglive/telemetry-backend-go/internal/models"
)

// VehicleRepository handles database operations for vehicles
type VehicleRepository struct {
	db *sql.DB
}

// NewVehicleRepository creates a new vehicle repository
func NewVehicleRepository(db *sql.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// Upsert records a vehicle seen in the feed. The vendor id is immutable;
// the plate is only overwritten when the feed supplies a non-empty one,
// and the last-known odometer advances with every accepted position.
func (r *VehicleRepository) Upsert(v models.Vehicle) error {
	_, err := r.db.Exec(`
		INSERT INTO veiculos (id_sascar, placa, ultimo_odometro)
		VALUES (?, ?, ?)
		ON CONFLICT (id_sascar) DO UPDATE SET
			placa = COALESCE(NULLIF(excluded.placa, ''), placa),
			ultimo_odometro = MAX(ultimo_odometro, excluded.ultimo_odometro)
	`, v.ID, v.Plate, v.LastOdometer)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle: %w", err)
	}
	return nil
}

// List returns all known vehicles ordered by plate.
func (r *VehicleRepository) List() ([]models.Vehicle, error) {
	rows, err := r.db.Query(`
		SELECT id_sascar, COALESCE(placa, ''), ultimo_odometro
		FROM veiculos
		ORDER BY placa, id_sascar
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var v models.Vehicle
		if err := rows.Scan(&v.ID, &v.Plate, &v.LastOdometer); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, rows.Err()
}

// GetByPlate returns the vehicle with the given plate, or nil when
// unknown.
func (r *VehicleRepository) GetByPlate(plate string) (*models.Vehicle, error) {
	var v models.Vehicle
	err := r.db.QueryRow(`
		SELECT id_sascar, COALESCE(placa, ''), ultimo_odometro
		FROM veiculos
		WHERE placa = ?
		LIMIT 1
	`, plate).Scan(&v.ID, &v.Plate, &v.LastOdometer)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicle by plate: %w", err)
	}
	return &v, nil
}
