package directions

import (
	"context"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"sync"
	"time"
)

// Average walking speed used for synthesized routes, in meters per second.
const walkingSpeed = 1.4

type MockRoute struct {
	Path    []domain.Coordinate
	Meters  float64
	Seconds float64
}

// MockDirectionsProvider returns preset routes, or a single straight-line
// route between the endpoints when none are preset. It records requests.
type MockDirectionsProvider struct {
	routes []MockRoute
	err    error

	mu       sync.Mutex
	requests []ports.DirectionsRequest
}

func NewMockDirectionsProvider(routes ...MockRoute) *MockDirectionsProvider {
	return &MockDirectionsProvider{routes: routes}
}

// NewFailingDirectionsProvider answers every request with status.
func NewFailingDirectionsProvider(status string) *MockDirectionsProvider {
	return &MockDirectionsProvider{err: &domain.DirectionsError{Status: status}}
}

func (p *MockDirectionsProvider) Route(
	ctx context.Context,
	req ports.DirectionsRequest,
) ([]domain.RouteCandidate, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}

	routes := p.routes
	if len(routes) == 0 {
		path := []domain.Coordinate{req.Origin, req.Destination}
		meters := domain.PolylineLength(path)
		routes = []MockRoute{{Path: path, Meters: meters, Seconds: meters / walkingSpeed}}
	}

	out := make([]domain.RouteCandidate, len(routes))
	for i, r := range routes {
		out[i] = domain.RouteCandidate{
			Index:           i,
			Polyline:        r.Path,
			DistanceMeters:  r.Meters,
			DurationSeconds: r.Seconds,
			DistanceText:    domain.FormatMiles(r.Meters),
			DurationText:    domain.FormatDuration(time.Duration(r.Seconds * float64(time.Second))),
		}
	}
	return out, nil
}

func (p *MockDirectionsProvider) Requests() []ports.DirectionsRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.DirectionsRequest(nil), p.requests...)
}
