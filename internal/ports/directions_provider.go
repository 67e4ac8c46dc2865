package ports

import (
	"context"
	"safe-route-service/internal/domain"
)

type TravelMode string

const (
	TravelWalking TravelMode = "walking"
)

// Parameters for a candidate-route request.
type DirectionsRequest struct {
	Origin        domain.Coordinate
	Destination   domain.Coordinate
	Mode          TravelMode
	AvoidHighways bool
	Alternatives  bool
}

// Contract for retrieving candidate routes between two points.
type DirectionsProvider interface {
	// Return candidate routes in provider order. A provider that answers
	// without a route returns *domain.DirectionsError.
	Route(ctx context.Context, req DirectionsRequest) ([]domain.RouteCandidate, error)
}
