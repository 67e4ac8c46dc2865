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

const (
	NominatimBaseURL = "https://nominatim.openstreetmap.org"

	// Public Nominatim allows one request per second per client.
	nominatimRatePerSecond = 1.0
	nominatimSearchLimit   = 5
	nominatimReverseZoom   = 18
)

var ErrNoResults = eris.New("geocode: no results")

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type nominatimReverse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// NominatimGeocoder implements Geocoder against an OpenStreetMap Nominatim
// instance. Safe for concurrent use.
type NominatimGeocoder struct {
	client *httpx.Client
}

func NewNominatimGeocoder(baseURL, userAgent string, rps float64, opts ...httpx.Option) *NominatimGeocoder {
	if baseURL == "" {
		baseURL = NominatimBaseURL
	}
	if rps <= 0 {
		rps = nominatimRatePerSecond
	}

	base := []httpx.Option{httpx.WithRateLimit(rps)}
	if userAgent != "" {
		base = append(base, httpx.WithHeader("User-Agent", userAgent))
	}

	return &NominatimGeocoder{
		client: httpx.New("nominatim", baseURL, append(base, opts...)...),
	}
}

// Return matches for query restricted by opts, best-ranked first.
func (n *NominatimGeocoder) Forward(
	ctx context.Context,
	query string,
	opts ports.ForwardOptions,
) (_ []ports.GeocodeResult, err error) {
	defer obs.Time(ctx, "nominatim.Forward")(&err)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, eris.New("nominatim forward: query must be non-empty")
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(nominatimSearchLimit))
	if len(opts.CountryCodes) > 0 {
		q.Set("countrycodes", strings.Join(opts.CountryCodes, ","))
	}
	if opts.ViewBox != nil {
		q.Set("bounded", "1")
		q.Set("viewbox", opts.ViewBox.ViewBox())
	}

	var places []nominatimPlace
	if err := n.client.GetJSON(ctx, "/search", q, &places); err != nil {
		return nil, eris.Wrapf(err, "nominatim forward %q", query)
	}

	out := make([]ports.GeocodeResult, 0, len(places))
	for _, p := range places {
		c, err := parseLatLon(p.Lat, p.Lon)
		if err != nil {
			continue
		}
		out = append(out, ports.GeocodeResult{Coordinate: c, DisplayName: p.DisplayName})
	}
	if len(out) == 0 {
		return nil, eris.Wrapf(ErrNoResults, "nominatim forward %q", query)
	}

	return out, nil
}

// Return the display name of the address nearest to c.
func (n *NominatimGeocoder) Reverse(ctx context.Context, c domain.Coordinate) (_ string, err error) {
	defer obs.Time(ctx, "nominatim.Reverse")(&err)

	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))
	q.Set("zoom", strconv.Itoa(nominatimReverseZoom))
	q.Set("addressdetails", "1")

	var decoded nominatimReverse
	if err := n.client.GetJSON(ctx, "/reverse", q, &decoded); err != nil {
		return "", eris.Wrapf(err, "nominatim reverse %s", c.Label())
	}
	if decoded.Error != "" {
		return "", eris.Wrapf(ErrNoResults, "nominatim reverse %s: %s", c.Label(), decoded.Error)
	}
	if strings.TrimSpace(decoded.DisplayName) == "" {
		return "", eris.Wrapf(ErrNoResults, "nominatim reverse %s", c.Label())
	}

	return decoded.DisplayName, nil
}

func parseLatLon(lat, lon string) (domain.Coordinate, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return domain.Coordinate{}, eris.Wrapf(err, "parse lat %q", lat)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return domain.Coordinate{}, eris.Wrapf(err, "parse lon %q", lon)
	}
	c := domain.Coordinate{Lat: la, Lng: lo}
	if !c.Valid() {
		return domain.Coordinate{}, eris.Errorf("coordinate out of range: %s", c.Label())
	}
	return c, nil
}
