package services

import (
	"context"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"sync"

	"go.uber.org/zap"
)

const DefaultDatasetID = "ogden_mock_data.csv"

// Return the built-in sample shown when a dataset cannot be loaded.
func FallbackSample() []domain.CrimeIncident {
	return []domain.CrimeIncident{
		{Coordinate: domain.Coordinate{Lat: 41.2230, Lng: -111.9738}, Weight: 245},
		{Coordinate: domain.Coordinate{Lat: 41.2198, Lng: -111.9712}, Weight: 180},
		{Coordinate: domain.Coordinate{Lat: 41.2156, Lng: -111.9689}, Weight: 320},
	}
}

// Point-in-time view of the loaded dataset.
type DatasetSnapshot struct {
	ID        string
	Incidents []domain.CrimeIncident
	Summary   domain.CrimeDatasetSummary
	Fallback  bool
	Loading   bool
}

// CrimeDataset loads the incidents of the selected dataset.
//
// Loading never leaves the dataset empty: a failed load installs the
// built-in sample. A load that settles after another selection was made
// is discarded.
type CrimeDataset struct {
	provider  ports.CrimeDatasetProvider
	defaultID string
	log       *zap.Logger

	mu        sync.Mutex
	token     uint64
	id        string
	incidents []domain.CrimeIncident
	summary   domain.CrimeDatasetSummary
	fallback  bool
	loading   bool
}

func NewCrimeDataset(provider ports.CrimeDatasetProvider, defaultID string, log *zap.Logger) *CrimeDataset {
	if defaultID == "" {
		defaultID = DefaultDatasetID
	}
	if log == nil {
		log = zap.L()
	}
	return &CrimeDataset{
		provider:  provider,
		defaultID: defaultID,
		log:       log.Named("crime"),
	}
}

// List returns the available dataset ids and the one to select initially:
// the configured default when listed, else the first id.
func (d *CrimeDataset) List(ctx context.Context) (_ []string, initial string, err error) {
	defer obs.Time(ctx, "crime.List")(&err)

	ids, err := d.provider.ListDatasets(ctx)
	if err != nil {
		return nil, "", err
	}

	for _, id := range ids {
		if id == d.defaultID {
			return ids, id, nil
		}
	}
	if len(ids) > 0 {
		return ids, ids[0], nil
	}
	return ids, "", nil
}

// Select loads dataset id and makes it current. applied is false when a
// newer selection superseded this one while it was loading.
func (d *CrimeDataset) Select(ctx context.Context, id string) (_ DatasetSnapshot, applied bool) {
	d.mu.Lock()
	d.token++
	token := d.token
	d.loading = true
	d.mu.Unlock()

	incidents, summary, fallback := d.load(ctx, id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if token != d.token {
		d.log.Info("discarding superseded dataset load", zap.String("dataset", id))
		return d.snapshotLocked(), false
	}

	d.id = id
	d.incidents = incidents
	d.summary = summary
	d.fallback = fallback
	d.loading = false
	return d.snapshotLocked(), true
}

// UseFallback installs the built-in sample without contacting the provider.
func (d *CrimeDataset) UseFallback() DatasetSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.token++
	d.id = ""
	d.incidents = FallbackSample()
	d.summary = domain.Summarize(d.incidents)
	d.fallback = true
	d.loading = false
	return d.snapshotLocked()
}

func (d *CrimeDataset) load(
	ctx context.Context,
	id string,
) ([]domain.CrimeIncident, domain.CrimeDatasetSummary, bool) {
	var err error
	defer obs.Time(ctx, "crime.Load")(&err)

	raw, err := d.provider.LoadDataset(ctx, id)
	if err != nil {
		d.log.Warn("dataset load failed, using built-in sample",
			zap.String("dataset", id),
			zap.Error(err),
		)
		sample := FallbackSample()
		return sample, domain.Summarize(sample), true
	}

	incidents := make([]domain.CrimeIncident, 0, len(raw))
	dropped := 0
	for _, inc := range raw {
		if !inc.Valid() {
			dropped++
			continue
		}
		incidents = append(incidents, inc)
	}
	if dropped > 0 {
		d.log.Warn("dropped invalid incidents",
			zap.String("dataset", id),
			zap.Int("dropped", dropped),
		)
	}

	summary, infoErr := d.provider.DatasetInfo(ctx, id)
	if infoErr != nil {
		d.log.Warn("dataset info failed, computing from incidents",
			zap.String("dataset", id),
			zap.Error(infoErr),
		)
		summary = domain.Summarize(incidents)
	}

	return incidents, summary, false
}

func (d *CrimeDataset) Snapshot() DatasetSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *CrimeDataset) snapshotLocked() DatasetSnapshot {
	return DatasetSnapshot{
		ID:        d.id,
		Incidents: append([]domain.CrimeIncident(nil), d.incidents...),
		Summary:   d.summary,
		Fallback:  d.fallback,
		Loading:   d.loading,
	}
}
