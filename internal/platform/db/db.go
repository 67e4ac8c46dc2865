package db

import (
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured backend. dsn is a file path for sqlite
// and a connection URL for postgres.
func Open(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSqlite:
		return OpenSqlite(dsn)
	case DriverPostgres:
		return OpenPostgres(dsn)
	default:
		return nil, eris.Errorf("openDB: unknown driver %q", driver)
	}
}

func OpenPostgres(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "openDB: open postgres database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, eris.Wrap(err, "openDB: verify postgres connection")
	}

	return db, nil
}

func OpenSqlite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrapf(err, "openDB: open sqlite database %q", path)
	}

	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, eris.Wrapf(err, "openDB: verify sqlite connection to %q", path)
	}

	return db, nil
}
