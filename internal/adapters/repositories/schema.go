package repositories

import (
	"context"
	"database/sql"
	"safe-route-service/internal/platform/db"

	"github.com/rotisserie/eris"
)

// Initialize the database schema for the given driver.
func InitSchema(ctx context.Context, conn *sql.DB, driver string) error {
	if conn == nil {
		return eris.New("init schema: DB is nil")
	}

	var statements []string
	switch driver {
	case db.DriverSqlite:
		statements = sqliteSchema
	case db.DriverPostgres:
		statements = postgresSchema
	default:
		return eris.Errorf("init schema: unknown driver %q", driver)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "init schema: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "init schema: exec statement #%d", i+1)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "init schema: commit tx")
	}

	return nil
}

var sqliteSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS crime_datasets (
		name TEXT PRIMARY KEY,
		imported_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS crime_incidents (
		id INTEGER PRIMARY KEY,
		dataset TEXT NOT NULL REFERENCES crime_datasets(name) ON DELETE CASCADE,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		weight REAL NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_crime_incidents_dataset
	ON crime_incidents(dataset);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		display_name TEXT NOT NULL
	);
	`,
}

var postgresSchema = []string{
	`
	CREATE TABLE IF NOT EXISTS crime_datasets (
		name TEXT PRIMARY KEY,
		imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`,
	`
	CREATE TABLE IF NOT EXISTS crime_incidents (
		id BIGSERIAL PRIMARY KEY,
		dataset TEXT NOT NULL REFERENCES crime_datasets(name) ON DELETE CASCADE,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		weight DOUBLE PRECISION NOT NULL
	);
	`,
	`
	CREATE INDEX IF NOT EXISTS idx_crime_incidents_dataset
	ON crime_incidents(dataset);
	`,
	`
	CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		lat DOUBLE PRECISION NOT NULL,
		lng DOUBLE PRECISION NOT NULL,
		display_name TEXT NOT NULL
	);
	`,
}
