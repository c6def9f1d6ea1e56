package database

import (
	"database/sql"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrations are embedded rather than loaded from disk so the sync and
// processor CLIs stay single-binary deployable.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_veiculos",
		SQL: `
			CREATE TABLE IF NOT EXISTS veiculos (
				id_sascar INTEGER PRIMARY KEY,
				placa TEXT,
				ultimo_odometro REAL NOT NULL DEFAULT 0
			);
		`,
	},
	{
		Version: 2,
		Name:    "create_posicoes_raw",
		SQL: `
			CREATE TABLE IF NOT EXISTS posicoes_raw (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				id_veiculo INTEGER NOT NULL,
				data_hora INTEGER NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				odometro REAL NOT NULL,
				ignicao INTEGER NOT NULL,
				velocidade REAL NOT NULL DEFAULT 0,
				UNIQUE (id_veiculo, data_hora)
			);
			CREATE INDEX IF NOT EXISTS idx_posicoes_veiculo_hora
				ON posicoes_raw (id_veiculo, data_hora);
		`,
	},
	{
		Version: 3,
		Name:    "create_pois",
		SQL: `
			CREATE TABLE IF NOT EXISTS pois (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				nome TEXT NOT NULL,
				latitude REAL NOT NULL,
				longitude REAL NOT NULL,
				raio_m REAL NOT NULL CHECK (raio_m > 0),
				tipo TEXT NOT NULL
			);
		`,
	},
	{
		Version: 4,
		Name:    "create_viagens",
		SQL: `
			CREATE TABLE IF NOT EXISTS viagens (
				id TEXT PRIMARY KEY,
				id_veiculo INTEGER NOT NULL,
				data_inicio INTEGER NOT NULL,
				data_fim INTEGER NOT NULL,
				poi_origem INTEGER,
				poi_destino INTEGER,
				dist_km REAL NOT NULL DEFAULT 0,
				categoria TEXT NOT NULL,
				odometro_anomalo INTEGER NOT NULL DEFAULT 0,
				origem_desconhecida INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_viagens_veiculo_inicio
				ON viagens (id_veiculo, data_inicio);
		`,
	},
	{
		Version: 5,
		Name:    "create_cursor_processamento",
		SQL: `
			CREATE TABLE IF NOT EXISTS cursor_processamento (
				id_veiculo INTEGER PRIMARY KEY,
				ultima_posicao INTEGER NOT NULL
			);
		`,
	},
}

// RunMigrations applies all pending migrations in version order.
func RunMigrations(db *sql.DB) error {
	if err := initMigrationsTable(db); err != nil {
		return err
	}

	applied, err := appliedMigrations(db)
	if err != nil {
		return err
	}

	pending := make([]Migration, 0, len(migrations))
	for _, m := range migrations {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Version < pending[j].Version })

	for _, m := range pending {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration transaction: %w", err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}
		log.WithFields(log.Fields{"version": m.Version, "name": m.Name}).Info("Applied migration")
	}

	return nil
}

func initMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func appliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, rows.Err()
}
