package domain

// LayerKind names the resource a map layer belongs to.
type LayerKind string

const (
	LayerMarker LayerKind = "marker"
	LayerRoute  LayerKind = "route"
	LayerCrime  LayerKind = "crime"
)

// ShapeKind mirrors the vector primitives the browser shell can draw.
type ShapeKind string

const (
	ShapeMarker       ShapeKind = "marker"        // icon pin
	ShapeCircle       ShapeKind = "circle"        // radius in meters
	ShapeCircleMarker ShapeKind = "circle_marker" // radius in pixels
	ShapePolyline     ShapeKind = "polyline"
)

// LayerID identifies a layer on a map surface. Zero is never assigned.
type LayerID uint64

type Style struct {
	Color       string  `json:"color,omitempty"`
	FillColor   string  `json:"fill_color,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
	FillOpacity float64 `json:"fill_opacity,omitempty"`
	Radius      float64 `json:"radius,omitempty"`
	Icon        string  `json:"icon,omitempty"`
}

type Feature struct {
	Shape     ShapeKind      `json:"shape"`
	Points    []Coordinate   `json:"points"`
	Style     Style          `json:"style"`
	Popup     string         `json:"popup,omitempty"`
	Draggable bool           `json:"draggable,omitempty"`
	Props     map[string]any `json:"props,omitempty"`
}

// Layer is a named group of features added and removed as a unit.
type Layer struct {
	Kind     LayerKind `json:"kind"`
	Name     string    `json:"name"`
	Features []Feature `json:"features"`
}

// Current center/zoom of the map viewport, plus the last fitted bounds.
type Viewport struct {
	Center Coordinate   `json:"center"`
	Zoom   int          `json:"zoom"`
	Bounds *BoundingBox `json:"bounds,omitempty"`
}
