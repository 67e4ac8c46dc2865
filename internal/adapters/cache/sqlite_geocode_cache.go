package cache

import (
	"context"
	"database/sql"
	"fmt"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"strings"

	"github.com/rotisserie/eris"
)

// SQLite backed cache mapping normalized forward queries to their first
// geocoding result. Query keys are expected to be normalized by the caller.
type SqliteGeocodeCache struct {
	DB *sql.DB
}

func NewSqliteGeocodeCache(db *sql.DB) *SqliteGeocodeCache {
	return &SqliteGeocodeCache{DB: db}
}

// Fetch cached results for the given queries.
func (s *SqliteGeocodeCache) GetMany(
	ctx context.Context,
	queries []string,
) (_ map[string]ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "geocode.sqlite_cache.GetMany")(&err)

	if s.DB == nil {
		return nil, eris.New("geocode cache: db is nil")
	}

	uniq := uniqueKeys(queries)
	if len(uniq) == 0 {
		return map[string]ports.GeocodeResult{}, nil
	}

	ph := make([]string, len(uniq))
	args := make([]any, len(uniq))
	for i, q := range uniq {
		ph[i] = "?"
		args[i] = q
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT
        query,
        lat,
        lng,
        display_name
    FROM geocode_cache
    WHERE query IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "get geocode cache: query geocode_cache table")
	}
	defer rows.Close()

	return scanResults(rows, len(uniq))
}

// Store query -> result mappings in the cache.
func (s *SqliteGeocodeCache) PutMany(ctx context.Context, results map[string]ports.GeocodeResult) error {
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
	INSERT OR REPLACE INTO geocode_cache (
        query,
        lat,
        lng,
        display_name
    )
    VALUES (?, ?, ?, ?);
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

func uniqueKeys(keys []string) []string {
	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}

		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	return uniq
}

func scanResults(rows *sql.Rows, capacity int) (map[string]ports.GeocodeResult, error) {
	out := make(map[string]ports.GeocodeResult, capacity)
	for rows.Next() {
		var q, name string
		var lat, lng float64
		if err := rows.Scan(&q, &lat, &lng, &name); err != nil {
			return nil, eris.Wrap(err, "get geocode cache: scan rows")
		}
		out[q] = ports.GeocodeResult{
			Coordinate:  domain.Coordinate{Lat: lat, Lng: lng},
			DisplayName: name,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "get geocode cache: row iteration")
	}
	return out, nil
}
