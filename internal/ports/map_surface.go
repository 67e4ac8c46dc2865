package ports

import (
	"safe-route-service/internal/domain"

	"github.com/paulmach/orb/geojson"
)

// MapSurface is the single viewport shared by markers, the route line and
// the crime layer. Callers own the layers they add and must remove them.
type MapSurface interface {
	AddLayer(layer domain.Layer) domain.LayerID
	// Replace a layer's contents without changing its ID.
	UpdateLayer(id domain.LayerID, layer domain.Layer) bool
	RemoveLayer(id domain.LayerID) bool
	SetView(center domain.Coordinate, zoom int)
	FitBounds(bounds domain.BoundingBox)
	// Remove every layer; later calls are no-ops.
	Destroy()
}

// Read side of a map surface rendered by the browser shell.
type MapView interface {
	Viewport() domain.Viewport
	LayersOf(kind domain.LayerKind) []domain.Layer
	FeatureCollection() *geojson.FeatureCollection
}
