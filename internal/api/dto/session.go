package dto

import (
	"safe-route-service/internal/domain"

	"github.com/paulmach/orb/geojson"
)

type CreateSessionResponse struct {
	ID string `json:"id"`
}

type MapResponse struct {
	Viewport domain.Viewport           `json:"viewport"`
	Layers   *geojson.FeatureCollection `json:"layers"`
}

// Typed endpoint text. Commit resolves immediately instead of waiting for
// typing to pause.
type PlaceRequest struct {
	Text   string `json:"text"`
	Commit bool   `json:"commit"`
}

type PlaceResponse struct {
	Resolved bool              `json:"resolved"`
	Place    domain.PlaceQuery `json:"place"`
}

// Both fields are required; pointers distinguish 0 from missing.
type CoordinateRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type ClickResponse struct {
	Placed bool `json:"placed"`
}

type SelectRouteRequest struct {
	Index *int `json:"index"`
}
