package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/httpx"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
)

const (
	ORSBaseURL     = "https://api.openrouteservice.org"
	DefaultProfile = "foot-walking"

	// Alternatives requested from ORS.
	alternativeCount  = 3
	alternativeShare  = 0.6
	alternativeWeight = 1.4

	StatusInvalidRequest = "INVALID_REQUEST"
)

type orsDirectionsRequest struct {
	Coordinates       [][]float64           `json:"coordinates"`
	Units             string                `json:"units"`
	AlternativeRoutes *orsAlternativeRoutes `json:"alternative_routes,omitempty"`
}

type orsAlternativeRoutes struct {
	TargetCount  int     `json:"target_count"`
	ShareFactor  float64 `json:"share_factor"`
	WeightFactor float64 `json:"weight_factor"`
}

type orsErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ORSDirectionsProvider implements DirectionsProvider using the
// OpenRouteService directions API with GeoJSON output.
//
// Walking profiles never route over motorways, so AvoidHighways needs no
// extra request option. The provider is safe for concurrent use.
type ORSDirectionsProvider struct {
	client  *httpx.Client
	profile string
}

func NewORSDirectionsProvider(apiKey, baseURL, profile string, opts ...httpx.Option) (*ORSDirectionsProvider, error) {
	if apiKey == "" {
		return nil, eris.New("ORS api key is empty")
	}
	if baseURL == "" {
		baseURL = ORSBaseURL
	}
	if profile == "" {
		profile = DefaultProfile
	}

	base := []httpx.Option{httpx.WithHeader("Authorization", apiKey)}
	return &ORSDirectionsProvider{
		client:  httpx.New("ors-directions", baseURL, append(base, opts...)...),
		profile: profile,
	}, nil
}

// Return candidate routes in ORS order. Failures answered by ORS itself
// are reported as *domain.DirectionsError.
func (o *ORSDirectionsProvider) Route(
	ctx context.Context,
	req ports.DirectionsRequest,
) (_ []domain.RouteCandidate, err error) {
	defer obs.Time(ctx, "ors.Route")(&err)

	if !req.Origin.Valid() || !req.Destination.Valid() {
		return nil, &domain.DirectionsError{Status: StatusInvalidRequest}
	}

	body := orsDirectionsRequest{
		Coordinates: [][]float64{req.Origin.CoordsToList(), req.Destination.CoordsToList()},
		Units:       "m",
	}
	if req.Alternatives {
		body.AlternativeRoutes = &orsAlternativeRoutes{
			TargetCount:  alternativeCount,
			ShareFactor:  alternativeShare,
			WeightFactor: alternativeWeight,
		}
	}

	var fc geojson.FeatureCollection
	path := fmt.Sprintf("/v2/directions/%s/geojson", o.profile)
	if err := o.client.PostJSON(ctx, path, body, &fc); err != nil {
		return nil, classify(err)
	}

	out := make([]domain.RouteCandidate, 0, len(fc.Features))
	for _, f := range fc.Features {
		c, ok := candidateFrom(f)
		if !ok {
			continue
		}
		c.Index = len(out)
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, &domain.DirectionsError{Status: domain.DirectionsZeroResults}
	}

	return out, nil
}

func candidateFrom(f *geojson.Feature) (domain.RouteCandidate, bool) {
	if f == nil {
		return domain.RouteCandidate{}, false
	}
	ls, ok := f.Geometry.(orb.LineString)
	if !ok || len(ls) < 2 {
		return domain.RouteCandidate{}, false
	}

	polyline := make([]domain.Coordinate, len(ls))
	for i, p := range ls {
		polyline[i] = domain.Coordinate{Lat: p.Lat(), Lng: p.Lon()}
	}

	var meters, seconds float64
	if summary, ok := f.Properties["summary"].(map[string]interface{}); ok {
		meters, _ = summary["distance"].(float64)
		seconds, _ = summary["duration"].(float64)
	}
	if meters <= 0 {
		meters = domain.PolylineLength(polyline)
	}

	return domain.RouteCandidate{
		Polyline:        polyline,
		DistanceMeters:  meters,
		DurationSeconds: seconds,
		DistanceText:    domain.FormatMiles(meters),
		DurationText:    domain.FormatDuration(time.Duration(seconds * float64(time.Second))),
	}, true
}

// classify maps an ORS failure to a directions status.
func classify(err error) error {
	var se *httpx.StatusError
	if !errors.As(err, &se) {
		return &domain.DirectionsError{Status: domain.DirectionsUnavailable, Err: err}
	}

	msg := se.Body
	var decoded orsErrorBody
	if json.Unmarshal([]byte(se.Body), &decoded) == nil && decoded.Error.Message != "" {
		msg = decoded.Error.Message
	}
	cause := eris.New(msg)

	switch {
	case se.Code == http.StatusNotFound:
		return &domain.DirectionsError{Status: domain.DirectionsNotFound, Err: cause}
	case se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests:
		return &domain.DirectionsError{Status: StatusInvalidRequest, Err: cause}
	default:
		return &domain.DirectionsError{Status: domain.DirectionsUnavailable, Err: err}
	}
}
