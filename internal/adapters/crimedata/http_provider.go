package crimedata

import (
	"context"
	"net/url"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/httpx"
	"safe-route-service/internal/platform/obs"

	"github.com/rotisserie/eris"
)

type crimeFilesResponse struct {
	AvailableFiles []string `json:"available_files"`
}

type crimeDataResponse struct {
	CrimeData []domain.CrimeIncident `json:"crimeData"`
}

type crimeInfoResponse struct {
	RecordCount int `json:"record_count"`
	WeightStats struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	} `json:"weight_stats"`
}

// HTTPProvider implements CrimeDatasetProvider against a remote crime
// data service. The same wire format is served by this service's API.
type HTTPProvider struct {
	client *httpx.Client
}

func NewHTTPProvider(baseURL string, opts ...httpx.Option) *HTTPProvider {
	return &HTTPProvider{client: httpx.New("crime-data", baseURL, opts...)}
}

func (p *HTTPProvider) ListDatasets(ctx context.Context) (_ []string, err error) {
	defer obs.Time(ctx, "crime.http.ListDatasets")(&err)

	var resp crimeFilesResponse
	if err := p.client.GetJSON(ctx, "/api/crime-files", nil, &resp); err != nil {
		return nil, eris.Wrap(err, "list crime files")
	}
	return resp.AvailableFiles, nil
}

func (p *HTTPProvider) LoadDataset(ctx context.Context, id string) (_ []domain.CrimeIncident, err error) {
	defer obs.Time(ctx, "crime.http.LoadDataset")(&err)

	q := url.Values{}
	q.Set("filename", id)

	var resp crimeDataResponse
	if err := p.client.GetJSON(ctx, "/api/crime-data", q, &resp); err != nil {
		return nil, eris.Wrapf(err, "load crime data %q", id)
	}
	return resp.CrimeData, nil
}

func (p *HTTPProvider) DatasetInfo(ctx context.Context, id string) (_ domain.CrimeDatasetSummary, err error) {
	defer obs.Time(ctx, "crime.http.DatasetInfo")(&err)

	var resp crimeInfoResponse
	path := "/api/crime-files/" + url.PathEscape(id) + "/info"
	if err := p.client.GetJSON(ctx, path, nil, &resp); err != nil {
		return domain.CrimeDatasetSummary{}, eris.Wrapf(err, "crime file info %q", id)
	}

	return domain.CrimeDatasetSummary{
		Count:     resp.RecordCount,
		WeightMin: resp.WeightStats.Min,
		WeightMax: resp.WeightStats.Max,
	}, nil
}
