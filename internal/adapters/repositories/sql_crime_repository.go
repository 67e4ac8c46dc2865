package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/db"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"strings"

	"github.com/rotisserie/eris"
)

// SQL-backed implementation of the CrimeDatasetProvider port. Works with
// both SQLite and Postgres; Driver selects the placeholder style.
type SQLCrimeRepository struct {
	DB     *sql.DB
	Driver string
}

func NewSQLCrimeRepository(conn *sql.DB, driver string) *SQLCrimeRepository {
	return &SQLCrimeRepository{DB: conn, Driver: driver}
}

// rebind rewrites "?" placeholders as "$n" for Postgres.
func (s *SQLCrimeRepository) rebind(q string) string {
	if s.Driver != db.DriverPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Return the names of every imported dataset.
func (s *SQLCrimeRepository) ListDatasets(ctx context.Context) (_ []string, err error) {
	defer obs.Time(ctx, "crime.sql.ListDatasets")(&err)

	if s.DB == nil {
		return nil, eris.New("sql crime repository: DB is nil")
	}

	query := `
	SELECT name
	FROM crime_datasets
	ORDER BY name;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "list datasets: query crime_datasets table")
	}
	defer rows.Close()

	names := make([]string, 0, 8)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "list datasets: scan row")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "list datasets: row iteration")
	}

	return names, nil
}

// Return all incidents of a dataset in import order.
func (s *SQLCrimeRepository) LoadDataset(ctx context.Context, name string) (_ []domain.CrimeIncident, err error) {
	defer obs.Time(ctx, "crime.sql.LoadDataset")(&err)

	if err := s.requireDataset(ctx, name); err != nil {
		return nil, err
	}

	query := s.rebind(`
	SELECT
		lat,
		lng,
		weight
	FROM crime_incidents
	WHERE dataset = ?
	ORDER BY id;
	`)
	rows, err := s.DB.QueryContext(ctx, query, name)
	if err != nil {
		return nil, eris.Wrapf(err, "load dataset %q: query crime_incidents table", name)
	}
	defer rows.Close()

	incidents := make([]domain.CrimeIncident, 0, 256)
	for rows.Next() {
		var inc domain.CrimeIncident
		if err := rows.Scan(&inc.Lat, &inc.Lng, &inc.Weight); err != nil {
			return nil, eris.Wrapf(err, "load dataset %q: scan row", name)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "load dataset %q: row iteration", name)
	}

	return incidents, nil
}

// Return count and weight range of a dataset.
func (s *SQLCrimeRepository) DatasetInfo(ctx context.Context, name string) (_ domain.CrimeDatasetSummary, err error) {
	defer obs.Time(ctx, "crime.sql.DatasetInfo")(&err)

	if err := s.requireDataset(ctx, name); err != nil {
		return domain.CrimeDatasetSummary{}, err
	}

	query := s.rebind(`
	SELECT
		COUNT(*),
		COALESCE(MIN(weight), 0),
		COALESCE(MAX(weight), 0)
	FROM crime_incidents
	WHERE dataset = ?;
	`)

	var sum domain.CrimeDatasetSummary
	if err := s.DB.QueryRowContext(ctx, query, name).Scan(&sum.Count, &sum.WeightMin, &sum.WeightMax); err != nil {
		return domain.CrimeDatasetSummary{}, eris.Wrapf(err, "dataset info %q", name)
	}
	return sum, nil
}

func (s *SQLCrimeRepository) requireDataset(ctx context.Context, name string) error {
	if s.DB == nil {
		return eris.New("sql crime repository: DB is nil")
	}

	var n int
	q := s.rebind(`SELECT COUNT(*) FROM crime_datasets WHERE name = ?;`)
	if err := s.DB.QueryRowContext(ctx, q, name).Scan(&n); err != nil {
		return eris.Wrapf(err, "lookup dataset %q", name)
	}
	if n == 0 {
		return eris.Wrapf(ports.ErrDatasetNotFound, "dataset %q", name)
	}
	return nil
}

// ReplaceDataset stores incidents under name, replacing any previous
// import of the same name. Invalid incidents are skipped; the number
// stored is returned.
func (s *SQLCrimeRepository) ReplaceDataset(
	ctx context.Context,
	name string,
	incidents []domain.CrimeIncident,
) (_ int, err error) {
	defer obs.Time(ctx, "crime.sql.ReplaceDataset")(&err)

	if s.DB == nil {
		return 0, eris.New("sql crime repository: DB is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, eris.New("replace dataset: name cannot be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "replace dataset: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM crime_incidents WHERE dataset = ?;`), name); err != nil {
		return 0, eris.Wrapf(err, "replace dataset %q: delete incidents", name)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`
	INSERT INTO crime_datasets (name)
	VALUES (?)
	ON CONFLICT (name) DO NOTHING;
	`), name); err != nil {
		return 0, eris.Wrapf(err, "replace dataset %q: insert dataset", name)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
	INSERT INTO crime_incidents (
		dataset,
		lat,
		lng,
		weight
	)
	VALUES (?, ?, ?, ?);
	`))
	if err != nil {
		return 0, eris.Wrapf(err, "replace dataset %q: prepare insert", name)
	}
	defer stmt.Close()

	stored := 0
	for _, inc := range incidents {
		if !inc.Valid() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, name, inc.Lat, inc.Lng, inc.Weight); err != nil {
			return 0, eris.Wrapf(err, "replace dataset %q: insert incident", name)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "replace dataset %q: commit tx", name)
	}

	return stored, nil
}
