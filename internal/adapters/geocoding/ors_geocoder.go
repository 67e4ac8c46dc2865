package geocoding

import (
	"context"
	"net/url"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/httpx"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const ORSBaseURL = "https://api.openrouteservice.org"

type orsGeocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// ORSGeocoder implements Geocoder using OpenRouteService
// (/geocode/search and /geocode/reverse).
type ORSGeocoder struct {
	client *httpx.Client
	size   int
}

func NewORSGeocoder(apiKey, baseURL string, opts ...httpx.Option) (*ORSGeocoder, error) {
	if apiKey == "" {
		return nil, eris.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = ORSBaseURL
	}

	base := []httpx.Option{httpx.WithHeader("Authorization", apiKey)}
	return &ORSGeocoder{
		client: httpx.New("ors-geocode", baseURL, append(base, opts...)...),
		size:   nominatimSearchLimit,
	}, nil
}

func (o *ORSGeocoder) Forward(
	ctx context.Context,
	query string,
	opts ports.ForwardOptions,
) (_ []ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "ors.geocode.Forward")(&err)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("ors forward: query must be non-empty")
	}

	q := url.Values{}
	q.Set("text", query)
	q.Set("size", strconv.Itoa(o.size))
	if len(opts.CountryCodes) > 0 {
		q.Set("boundary.country", strings.ToUpper(strings.Join(opts.CountryCodes, ",")))
	}
	if b := opts.ViewBox; b != nil {
		q.Set("boundary.rect.min_lon", strconv.FormatFloat(b.West, 'f', -1, 64))
		q.Set("boundary.rect.min_lat", strconv.FormatFloat(b.South, 'f', -1, 64))
		q.Set("boundary.rect.max_lon", strconv.FormatFloat(b.East, 'f', -1, 64))
		q.Set("boundary.rect.max_lat", strconv.FormatFloat(b.North, 'f', -1, 64))
	}

	var decoded orsGeocodeResponse
	if err := o.client.GetJSON(ctx, "/geocode/search", q, &decoded); err != nil {
		return nil, eris.Wrapf(err, "ors forward %q", query)
	}

	out := make([]ports.GeocodeResult, 0, len(decoded.Features))
	for _, f := range decoded.Features {
		coords := f.Geometry.Coordinates
		if len(coords) != 2 {
			continue
		}
		c := domain.Coordinate{Lat: coords[1], Lng: coords[0]}
		if !c.Valid() {
			continue
		}
		out = append(out, ports.GeocodeResult{Coordinate: c, DisplayName: f.Properties.Label})
	}
	if len(out) == 0 {
		return nil, eris.Wrapf(ErrNoResults, "ors forward %q", query)
	}

	return out, nil
}

func (o *ORSGeocoder) Reverse(ctx context.Context, c domain.Coordinate) (_ string, err error) {
	defer obs.Time(ctx, "ors.geocode.Reverse")(&err)

	q := url.Values{}
	q.Set("point.lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("point.lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))
	q.Set("size", "1")

	var decoded orsGeocodeResponse
	if err := o.client.GetJSON(ctx, "/geocode/reverse", q, &decoded); err != nil {
		return "", eris.Wrapf(err, "ors reverse %s", c.Label())
	}
	if len(decoded.Features) == 0 || decoded.Features[0].Properties.Label == "" {
		return "", eris.Wrapf(ErrNoResults, "ors reverse %s", c.Label())
	}

	return decoded.Features[0].Properties.Label, nil
}
