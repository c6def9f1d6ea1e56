package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/loglive/telemetry-backend-go/internal/models"
)

// TripRepository handles database operations for trips and the
// per-vehicle processing cursor.
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

// Insert appends one trip record. Trips are permanent: there is no
// update or delete path.
func (r *TripRepository) Insert(t models.Trip) error {
	_, err := r.db.Exec(`
		INSERT INTO viagens (id, id_veiculo, data_inicio, data_fim, poi_origem, poi_destino,
			dist_km, categoria, odometro_anomalo, origem_desconhecida)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.VehicleID, t.StartTime.Unix(), t.EndTime.Unix(),
		t.OriginPOIID, t.DestPOIID, t.DistanceKm, string(t.Category),
		boolToInt(t.OdometerAnomaly), boolToInt(t.UnknownOrigin))
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	return nil
}

// List retrieves trips with filtering and pagination
func (r *TripRepository) List(filter models.TripFilter) ([]models.Trip, int64, error) {
	var conditions []string
	var args []interface{}

	if filter.VehicleID > 0 {
		conditions = append(conditions, "v.id_veiculo = ?")
		args = append(args, filter.VehicleID)
	}
	if filter.Plate != "" {
		conditions = append(conditions, "v.id_veiculo IN (SELECT id_sascar FROM veiculos WHERE placa = ?)")
		args = append(args, filter.Plate)
	}
	if filter.Category != "" {
		conditions = append(conditions, "v.categoria = ?")
		args = append(args, filter.Category)
	}
	if filter.StartTime > 0 {
		conditions = append(conditions, "v.data_inicio >= ?")
		args = append(args, filter.StartTime)
	}
	if filter.EndTime > 0 {
		conditions = append(conditions, "v.data_fim <= ?")
		args = append(args, filter.EndTime)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.QueryRow("SELECT COUNT(*) FROM viagens v"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
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
		SELECT v.id, v.id_veiculo, v.data_inicio, v.data_fim, v.poi_origem, v.poi_destino,
			v.dist_km, v.categoria, v.odometro_anomalo, v.origem_desconhecida, v.created_at
		FROM viagens v` + where + `
		ORDER BY v.data_inicio DESC LIMIT ? OFFSET ?`
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *t)
	}

	return trips, total, rows.Err()
}

// ListByVehicle returns all trips for one vehicle in start order.
// Used by the engine's idempotence tests and the reporting API.
func (r *TripRepository) ListByVehicle(vehicleID int64) ([]models.Trip, error) {
	rows, err := r.db.Query(`
		SELECT id, id_veiculo, data_inicio, data_fim, poi_origem, poi_destino,
			dist_km, categoria, odometro_anomalo, origem_desconhecida, created_at
		FROM viagens
		WHERE id_veiculo = ?
		ORDER BY data_inicio ASC
	`, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *t)
	}

	return trips, rows.Err()
}

// ListRange returns all trips starting inside [start, end), in start
// order. Feeds the fleet statistics aggregation.
func (r *TripRepository) ListRange(start, end int64) ([]models.Trip, error) {
	rows, err := r.db.Query(`
		SELECT id, id_veiculo, data_inicio, data_fim, poi_origem, poi_destino,
			dist_km, categoria, odometro_anomalo, origem_desconhecida, created_at
		FROM viagens
		WHERE data_inicio >= ? AND data_inicio < ?
		ORDER BY data_inicio ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, *t)
	}

	return trips, rows.Err()
}

// LastTripBefore returns the vehicle's most recent trip ending at or
// before ts, or nil when it has none. The engine uses it to recover the
// transit origin when a stream starts mid-transit.
func (r *TripRepository) LastTripBefore(vehicleID int64, ts time.Time) (*models.Trip, error) {
	row := r.db.QueryRow(`
		SELECT id, id_veiculo, data_inicio, data_fim, poi_origem, poi_destino,
			dist_km, categoria, odometro_anomalo, origem_desconhecida, created_at
		FROM viagens
		WHERE id_veiculo = ? AND data_fim <= ?
		ORDER BY data_fim DESC
		LIMIT 1
	`, vehicleID, ts.Unix())

	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last trip: %w", err)
	}
	return t, nil
}

// Overlaps reports whether the vehicle already has a trip whose
// [start, end] interval intersects the given one. Reprocessing uses it
// to skip re-derived legs instead of ever overwriting stored trips.
func (r *TripRepository) Overlaps(vehicleID int64, start, end time.Time) (bool, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM viagens
		WHERE id_veiculo = ? AND data_inicio <= ? AND data_fim >= ?
	`, vehicleID, end.Unix(), start.Unix()).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query trip overlap: %w", err)
	}
	return n > 0, nil
}

// InsertWithCursor appends a trip and advances the vehicle's processing
// cursor to the trip end in one transaction, so a kill between the two
// writes can never produce a duplicate trip on the next run.
func (r *TripRepository) InsertWithCursor(t models.Trip) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO viagens (id, id_veiculo, data_inicio, data_fim, poi_origem, poi_destino,
			dist_km, categoria, odometro_anomalo, origem_desconhecida)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.VehicleID, t.StartTime.Unix(), t.EndTime.Unix(),
		t.OriginPOIID, t.DestPOIID, t.DistanceKm, string(t.Category),
		boolToInt(t.OdometerAnomaly), boolToInt(t.UnknownOrigin))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert trip: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO cursor_processamento (id_veiculo, ultima_posicao)
		VALUES (?, ?)
		ON CONFLICT (id_veiculo) DO UPDATE SET
			ultima_posicao = MAX(ultima_posicao, excluded.ultima_posicao)
	`, t.VehicleID, t.EndTime.Unix())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit trip: %w", err)
	}
	return nil
}

// Cursor returns the timestamp of the last raw position consumed into a
// closed trip for the vehicle. ok is false when the vehicle has never
// been processed.
func (r *TripRepository) Cursor(vehicleID int64) (time.Time, bool, error) {
	var ts int64
	err := r.db.QueryRow(`
		SELECT ultima_posicao FROM cursor_processamento WHERE id_veiculo = ?
	`, vehicleID).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query cursor: %w", err)
	}
	return time.Unix(ts, 0).UTC(), true, nil
}

// SetCursor advances the vehicle's processing cursor. The cursor only
// moves forward; a stale write is ignored.
func (r *TripRepository) SetCursor(vehicleID int64, ts time.Time) error {
	_, err := r.db.Exec(`
		INSERT INTO cursor_processamento (id_veiculo, ultima_posicao)
		VALUES (?, ?)
		ON CONFLICT (id_veiculo) DO UPDATE SET
			ultima_posicao = MAX(ultima_posicao, excluded.ultima_posicao)
	`, vehicleID, ts.Unix())
	if err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	return nil
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	var start, end int64
	var origin, dest sql.NullInt64
	var anomaly, unknown int
	var category string
	if err := row.Scan(&t.ID, &t.VehicleID, &start, &end, &origin, &dest,
		&t.DistanceKm, &category, &anomaly, &unknown, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.StartTime = time.Unix(start, 0).UTC()
	t.EndTime = time.Unix(end, 0).UTC()
	if origin.Valid {
		t.OriginPOIID = &origin.Int64
	}
	if dest.Valid {
		t.DestPOIID = &dest.Int64
	}
	t.Category = models.TripCategory(category)
	t.OdometerAnomaly = anomaly != 0
	t.UnknownOrigin = unknown != 0
	return &t, nil
}
