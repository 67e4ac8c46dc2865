package repositories

import (
	"encoding/csv"
	"io"
	"safe-route-service/internal/domain"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultWeight is assigned to shapefile points without a weight attribute.
const DefaultWeight = 1.0

type incidentRow struct {
	Lat    float64 `csv:"lat"`
	Lng    float64 `csv:"lng"`
	Weight float64 `csv:"weight"`
}

// ReadCSV decodes incidents from a CSV with lat, lng and weight columns.
// Extra columns are ignored; rows that fail validation are dropped.
func ReadCSV(r io.Reader) ([]domain.CrimeIncident, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		return nil, eris.Wrap(err, "read csv: header")
	}

	incidents := make([]domain.CrimeIncident, 0, 256)
	skipped := 0
	for {
		var row incidentRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "read csv: line %d", len(incidents)+skipped+2)
		}

		inc := domain.CrimeIncident{
			Coordinate: domain.Coordinate{Lat: row.Lat, Lng: row.Lng},
			Weight:     row.Weight,
		}
		if !inc.Valid() {
			skipped++
			continue
		}
		incidents = append(incidents, inc)
	}

	if skipped > 0 {
		zap.L().Warn("read csv: skipped invalid rows", zap.Int("skipped", skipped))
	}
	return incidents, nil
}

// ReadShapefile loads point incidents from a shapefile. Non-point shapes are
// skipped. weightField names the numeric attribute holding the weight; an
// empty name or a missing value yields DefaultWeight.
func ReadShapefile(path, weightField string) ([]domain.CrimeIncident, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	weightIdx := -1
	if weightField != "" {
		weightIdx = fieldIndex(reader, weightField)
		if weightIdx < 0 {
			return nil, eris.Errorf("read shapefile: field %q not found", weightField)
		}
	}

	incidents := make([]domain.CrimeIncident, 0, 256)
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		point, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}

		weight := DefaultWeight
		if weightIdx >= 0 {
			raw := strings.TrimSpace(strings.TrimRight(reader.Attribute(weightIdx), "\x00"))
			if raw != "" {
				v, err := strconv.ParseFloat(raw, 64)
				if err != nil {
					skipped++
					continue
				}
				weight = v
			}
		}

		inc := domain.CrimeIncident{
			Coordinate: domain.Coordinate{Lat: point.Y, Lng: point.X},
			Weight:     weight,
		}
		if !inc.Valid() {
			skipped++
			continue
		}
		incidents = append(incidents, inc)
	}

	if skipped > 0 {
		zap.L().Warn("read shapefile: skipped shapes",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return incidents, nil
}

// fieldIndex returns the index of a named attribute, or -1.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
