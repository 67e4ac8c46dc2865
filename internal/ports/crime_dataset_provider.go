package ports

import (
	"context"
	"errors"
	"safe-route-service/internal/domain"
)

// Returned (possibly wrapped) when a dataset id is unknown to the provider.
var ErrDatasetNotFound = errors.New("crime dataset not found")

// Port: a boundary for retrieving crime datasets from a data source.
type CrimeDatasetProvider interface {
	// Return identifiers of every available dataset.
	ListDatasets(ctx context.Context) ([]string, error)
	// Retrieve all incidents of a dataset.
	LoadDataset(ctx context.Context, id string) ([]domain.CrimeIncident, error)
	// Return summary statistics of a dataset.
	DatasetInfo(ctx context.Context, id string) (domain.CrimeDatasetSummary, error)
}
