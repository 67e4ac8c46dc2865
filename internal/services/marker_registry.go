package services

import (
	"context"
	"fmt"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"sync"

	"github.com/google/uuid"
)

const (
	StartIcon = "green"
	EndIcon   = "red"

	RouteLineWeight  = 6
	RouteLineOpacity = 0.8
)

type placedMarker struct {
	marker domain.Marker
	layer  domain.LayerID
}

// MarkerRegistry owns the start marker, the end marker and the route line
// on a map surface. It is the only writer of those layers.
type MarkerRegistry struct {
	surface ports.MapSurface
	newID   func() string

	mu        sync.Mutex
	markers   map[domain.MarkerType]*placedMarker
	routeLine domain.LayerID
	destroyed bool
}

func NewMarkerRegistry(surface ports.MapSurface) *MarkerRegistry {
	return &MarkerRegistry{
		surface: surface,
		newID:   uuid.NewString,
		markers: make(map[domain.MarkerType]*placedMarker, 2),
	}
}

// Create replaces any marker of the same type with a new one.
func (r *MarkerRegistry) Create(kind domain.MarkerType, c domain.Coordinate, label string) domain.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := domain.Marker{ID: r.newID(), Type: kind, Coordinate: c, Label: label}
	if r.destroyed {
		return m
	}

	if old, ok := r.markers[kind]; ok {
		r.surface.RemoveLayer(old.layer)
	}
	id := r.surface.AddLayer(markerLayer(m))
	r.markers[kind] = &placedMarker{marker: m, layer: id}
	return m
}

// Drag moves the marker of kind to c and re-resolves its label, keeping its
// ID. A lookup that settles after the marker was replaced or removed is
// discarded and ok is false.
func (r *MarkerRegistry) Drag(
	ctx context.Context,
	kind domain.MarkerType,
	c domain.Coordinate,
	resolve ReverseFunc,
) (_ domain.Marker, ok bool) {
	r.mu.Lock()
	pm, exists := r.markers[kind]
	if !exists || r.destroyed {
		r.mu.Unlock()
		return domain.Marker{}, false
	}
	id := pm.marker.ID
	pm.marker.Coordinate = c
	r.surface.UpdateLayer(pm.layer, markerLayer(pm.marker))
	r.mu.Unlock()

	label := resolve(ctx, c)

	r.mu.Lock()
	defer r.mu.Unlock()

	pm, exists = r.markers[kind]
	if !exists || pm.marker.ID != id || pm.marker.Coordinate != c {
		return domain.Marker{}, false
	}
	pm.marker.Label = label
	r.surface.UpdateLayer(pm.layer, markerLayer(pm.marker))
	return pm.marker, true
}

func (r *MarkerRegistry) Marker(kind domain.MarkerType) (domain.Marker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pm, ok := r.markers[kind]
	if !ok {
		return domain.Marker{}, false
	}
	return pm.marker, true
}

// Markers returns the placed markers, start first.
func (r *MarkerRegistry) Markers() []domain.Marker {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Marker, 0, 2)
	for _, kind := range []domain.MarkerType{domain.MarkerStart, domain.MarkerEnd} {
		if pm, ok := r.markers[kind]; ok {
			out = append(out, pm.marker)
		}
	}
	return out
}

// SetRouteLine replaces the route line with polyline colored by score.
func (r *MarkerRegistry) SetRouteLine(polyline []domain.Coordinate, score float64, popup string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.destroyed {
		return
	}
	r.removeRouteLine()
	r.routeLine = r.surface.AddLayer(domain.Layer{
		Kind: domain.LayerRoute,
		Name: "route",
		Features: []domain.Feature{{
			Shape:  domain.ShapePolyline,
			Points: polyline,
			Style: domain.Style{
				Color:   RouteLineColor(score),
				Weight:  RouteLineWeight,
				Opacity: RouteLineOpacity,
			},
			Popup: popup,
			Props: map[string]any{"safety_score": score},
		}},
	})
}

func (r *MarkerRegistry) ClearRouteLine() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeRouteLine()
}

func (r *MarkerRegistry) HasRouteLine() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routeLine != 0
}

func (r *MarkerRegistry) removeRouteLine() {
	if r.routeLine != 0 {
		r.surface.RemoveLayer(r.routeLine)
		r.routeLine = 0
	}
}

// Clear removes both markers and the route line.
func (r *MarkerRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kind, pm := range r.markers {
		r.surface.RemoveLayer(pm.layer)
		delete(r.markers, kind)
	}
	r.removeRouteLine()
}

// Destroy clears the registry for good; later calls place nothing.
func (r *MarkerRegistry) Destroy() {
	r.Clear()

	r.mu.Lock()
	r.destroyed = true
	r.mu.Unlock()
}

func markerLayer(m domain.Marker) domain.Layer {
	icon := EndIcon
	if m.Type == domain.MarkerStart {
		icon = StartIcon
	}
	return domain.Layer{
		Kind: domain.LayerMarker,
		Name: string(m.Type),
		Features: []domain.Feature{{
			Shape:     domain.ShapeMarker,
			Points:    []domain.Coordinate{m.Coordinate},
			Style:     domain.Style{Icon: icon},
			Popup:     fmt.Sprintf("%s<br/>%s", m.Type.Title(), m.Label),
			Draggable: true,
			Props: map[string]any{
				"marker_id":   m.ID,
				"marker_type": string(m.Type),
				"label":       m.Label,
			},
		}},
	}
}
