package cache

import (
	"context"
	"database/sql"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"strings"

	"github.com/rotisserie/eris"
)

// SQLGeocodeCache is a Postgres-backed cache mapping normalized forward
// queries to their first geocoding result.
type SQLGeocodeCache struct {
	DB *sql.DB
}

func NewSQLGeocodeCache(db *sql.DB) *SQLGeocodeCache {
	return &SQLGeocodeCache{DB: db}
}

// Fetch cached results for the given queries.
func (s *SQLGeocodeCache) GetMany(
	ctx context.Context,
	queries []string,
) (_ map[string]ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "geocode.sql_cache.GetMany")(&err)

	if s.DB == nil {
		return nil, eris.New("geocode cache: db is nil")
	}

	uniq := uniqueKeys(queries)
	if len(uniq) == 0 {
		return map[string]ports.GeocodeResult{}, nil
	}

	q := `
	SELECT query, lat, lng, display_name
    FROM geocode_cache
    WHERE query = ANY($1::text[]);
	`

	rows, err := s.DB.QueryContext(ctx, q, uniq)
	if err != nil {
		return nil, eris.Wrap(err, "get geocode cache: query geocode_cache table")
	}
	defer rows.Close()

	return scanResults(rows, len(uniq))
}

// Store query -> result mappings in the cache.
func (s *SQLGeocodeCache) PutMany(ctx context.Context, results map[string]ports.GeocodeResult) error {
	if s.DB == nil {
		return eris.New("geocode cache: db is nil")
	}

	if len(results) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "insert geocode cache: db begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO geocode_cache (query, lat, lng, display_name)
    VALUES ($1, $2, $3, $4)
	ON CONFLICT (query) DO UPDATE
	SET lat = EXCLUDED.lat,
		lng = EXCLUDED.lng,
		display_name = EXCLUDED.display_name;
	`)
	if err != nil {
		return eris.Wrap(err, "insert geocode cache: db prepare")
	}
	defer stmt.Close()

	for q, r := range results {
		if strings.TrimSpace(q) == "" {
			return eris.New("insert geocode cache: empty query key")
		}

		if _, err := stmt.ExecContext(ctx, q, r.Coordinate.Lat, r.Coordinate.Lng, r.DisplayName); err != nil {
			return eris.Wrapf(err, "insert geocode cache query=%q", q)
		}
	}
	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "insert geocode cache commit")
	}

	return nil
}
