package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loglive/telemetry-backend-go/internal/models"
)

// PositionRepository handles database operations for raw positions
type PositionRepository struct {
	db *sql.DB
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(db *sql.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Insert appends one raw position. Returns false when a row with the
// same (vehicle, timestamp) already exists; the table is append-only and
// existing rows are never overwritten.
func (r *PositionRepository) Insert(p models.RawPosition) (bool, error) {
	res, err := r.db.Exec(`
		INSERT INTO posicoes_raw (id_veiculo, data_hora, latitude, longitude, odometro, ignicao, velocidade)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id_veiculo, data_hora) DO NOTHING
	`, p.VehicleID, p.Timestamp.Unix(), p.Latitude, p.Longitude, p.Odometer, boolToInt(p.IgnitionOn), p.SpeedKmh)
	if err != nil {
		return false, fmt.Errorf("failed to insert position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// LastSaved returns the most recent stored position for a vehicle, or
// nil when the vehicle has no rows. This is the persisted side of the
// save-filter cursor.
func (r *PositionRepository) LastSaved(vehicleID int64) (*models.RawPosition, error) {
	row := r.db.QueryRow(`
		SELECT id, id_veiculo, data_hora, latitude, longitude, odometro, ignicao, velocidade
		FROM posicoes_raw
		WHERE id_veiculo = ?
		ORDER BY data_hora DESC
		LIMIT 1
	`, vehicleID)

	p, err := scanPosition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last position: %w", err)
	}
	return p, nil
}

// RangeAfter returns a vehicle's positions with timestamp strictly after
// the given cursor, in ascending timestamp order.
func (r *PositionRepository) RangeAfter(vehicleID int64, after time.Time) ([]models.RawPosition, error) {
	rows, err := r.db.Query(`
		SELECT id, id_veiculo, data_hora, latitude, longitude, odometro, ignicao, velocidade
		FROM posicoes_raw
		WHERE id_veiculo = ? AND data_hora > ?
		ORDER BY data_hora ASC
	`, vehicleID, after.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query position range: %w", err)
	}
	defer rows.Close()

	var positions []models.RawPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *p)
	}

	return positions, rows.Err()
}

// List retrieves positions with filtering and pagination
func (r *PositionRepository) List(filter models.PositionFilter) ([]models.RawPosition, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.VehicleID > 0 {
		conditions = append(conditions, "id_veiculo = ?")
		args = append(args, filter.VehicleID)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "data_hora >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "data_hora <= ?")
		args = append(args, filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM posicoes_raw"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count positions: %w", err)
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}
	if filter.PageSize > 1000 {
		filter.PageSize = 1000
	}
	offset := (filter.Page - 1) * filter.PageSize

	query := `
		SELECT id, id_veiculo, data_hora, latitude, longitude, odometro, ignicao, velocidade
		FROM posicoes_raw` + where + `
		ORDER BY data_hora DESC LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []models.RawPosition
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, *p)
	}

	return positions, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (*models.RawPosition, error) {
	var p models.RawPosition
	var ts int64
	var ign int
	if err := row.Scan(&p.ID, &p.VehicleID, &ts, &p.Latitude, &p.Longitude, &p.Odometer, &ign, &p.SpeedKmh); err != nil {
		return nil, err
	}
	p.Timestamp = time.Unix(ts, 0).UTC()
	p.IgnitionOn = ign != 0
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
