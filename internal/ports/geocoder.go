package ports

import (
	"context"
	"safe-route-service/internal/domain"
)

// A single forward geocoding hit.
type GeocodeResult struct {
	Coordinate  domain.Coordinate
	DisplayName string
}

// Restricts forward lookups to a region.
type ForwardOptions struct {
	ViewBox      *domain.BoundingBox
	CountryCodes []string
}

// Contract for resolving addresses to coordinates and back.
type Geocoder interface {
	// Return matches for the query, best-ranked first.
	Forward(ctx context.Context, query string, opts ForwardOptions) ([]GeocodeResult, error)
	// Return a display name for the coordinate.
	Reverse(ctx context.Context, c domain.Coordinate) (string, error)
}

// Persistent store for first-result forward lookups keyed by normalized query.
type GeocodeCache interface {
	GetMany(ctx context.Context, queries []string) (map[string]GeocodeResult, error)
	PutMany(ctx context.Context, results map[string]GeocodeResult) error
}
