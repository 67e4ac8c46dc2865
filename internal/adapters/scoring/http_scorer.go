package scoring

import (
	"context"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/httpx"
	"safe-route-service/internal/platform/obs"

	"github.com/rotisserie/eris"
)

const checkRoutePath = "/api/check-route"

type routePoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type checkRouteRequest struct {
	Route []routePoint `json:"route"`
}

type checkRouteResponse struct {
	SafetyScore         float64 `json:"safetyScore"`
	SafetyCategory      string  `json:"safetyCategory"`
	AffectingCrimeCount int     `json:"affectingCrimeCount"`
}

// HTTPScorer implements SafetyScorer against the route safety service.
// Responses are returned as received; range checks belong to the caller.
type HTTPScorer struct {
	client *httpx.Client
}

func NewHTTPScorer(baseURL string, opts ...httpx.Option) *HTTPScorer {
	return &HTTPScorer{client: httpx.New("scoring", baseURL, opts...)}
}

func (s *HTTPScorer) Assess(ctx context.Context, polyline []domain.Coordinate) (_ domain.SafetyAssessment, err error) {
	defer obs.Time(ctx, "scoring.Assess")(&err)

	if len(polyline) < 2 {
		return domain.SafetyAssessment{}, eris.New("assess route: route must have at least 2 points")
	}

	req := checkRouteRequest{Route: make([]routePoint, len(polyline))}
	for i, c := range polyline {
		req.Route[i] = routePoint{Lat: c.Lat, Lng: c.Lng}
	}

	var resp checkRouteResponse
	if err := s.client.PostJSON(ctx, checkRoutePath, req, &resp); err != nil {
		return domain.SafetyAssessment{}, eris.Wrap(err, "assess route")
	}

	return domain.SafetyAssessment{
		Score:                  resp.SafetyScore,
		Category:               domain.SafetyCategory(resp.SafetyCategory),
		AffectingIncidentCount: resp.AffectingCrimeCount,
	}, nil
}
