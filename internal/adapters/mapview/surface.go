// Package mapview holds the in-process map surface a routing session draws on.
package mapview

import (
	"math"
	"safe-route-service/internal/domain"
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const (
	DefaultZoom = 13
	minZoom     = 1
	maxZoom     = 18
)

// DefaultCenter is downtown Ogden, Utah.
var DefaultCenter = domain.Coordinate{Lat: 41.223, Lng: -111.9738}

type entry struct {
	id    domain.LayerID
	layer domain.Layer
}

// Surface is an in-memory MapSurface. It is safe for concurrent use.
type Surface struct {
	mu        sync.Mutex
	nextID    domain.LayerID
	layers    map[domain.LayerID]domain.Layer
	viewport  domain.Viewport
	destroyed bool
}

func NewSurface(center domain.Coordinate, zoom int) *Surface {
	return &Surface{
		layers:   make(map[domain.LayerID]domain.Layer),
		viewport: domain.Viewport{Center: center, Zoom: clampZoom(zoom)},
	}
}

func (s *Surface) AddLayer(layer domain.Layer) domain.LayerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return 0
	}
	s.nextID++
	s.layers[s.nextID] = layer
	return s.nextID
}

func (s *Surface) UpdateLayer(id domain.LayerID, layer domain.Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.layers[id]; !ok {
		return false
	}
	s.layers[id] = layer
	return true
}

func (s *Surface) RemoveLayer(id domain.LayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.layers[id]; !ok {
		return false
	}
	delete(s.layers, id)
	return true
}

func (s *Surface) SetView(center domain.Coordinate, zoom int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.viewport = domain.Viewport{Center: center, Zoom: clampZoom(zoom)}
}

// FitBounds centers the viewport on the box at the largest zoom that still
// shows all of it.
func (s *Surface) FitBounds(b domain.BoundingBox) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destroyed {
		return
	}
	s.viewport = domain.Viewport{
		Center: b.Center(),
		Zoom:   ZoomForBounds(b),
		Bounds: &b,
	}
}

func (s *Surface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.destroyed = true
	clear(s.layers)
}

func (s *Surface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *Surface) Viewport() domain.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()

	vp := s.viewport
	if vp.Bounds != nil {
		b := *vp.Bounds
		vp.Bounds = &b
	}
	return vp
}

func (s *Surface) LayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.layers)
}

// LayersOf returns layers of one kind in insertion order.
func (s *Surface) LayersOf(kind domain.LayerKind) []domain.Layer {
	var out []domain.Layer
	for _, e := range s.ordered() {
		if e.layer.Kind == kind {
			out = append(out, e.layer)
		}
	}
	return out
}

func (s *Surface) ordered() []entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entry, 0, len(s.layers))
	for id, l := range s.layers {
		out = append(out, entry{id: id, layer: l})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// FeatureCollection exports every feature as GeoJSON. Layer and style
// attributes are carried in feature properties.
func (s *Surface) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, e := range s.ordered() {
		for _, f := range e.layer.Features {
			gf := geojson.NewFeature(geometryOf(f))
			for k, v := range f.Props {
				gf.Properties[k] = v
			}
			gf.Properties["layer_id"] = uint64(e.id)
			gf.Properties["layer_kind"] = string(e.layer.Kind)
			gf.Properties["layer_name"] = e.layer.Name
			gf.Properties["shape"] = string(f.Shape)
			gf.Properties["style"] = f.Style
			if f.Popup != "" {
				gf.Properties["popup"] = f.Popup
			}
			if f.Draggable {
				gf.Properties["draggable"] = true
			}
			fc.Append(gf)
		}
	}
	return fc
}

func geometryOf(f domain.Feature) orb.Geometry {
	if f.Shape == domain.ShapePolyline {
		ls := make(orb.LineString, 0, len(f.Points))
		for _, p := range f.Points {
			ls = append(ls, p.Point())
		}
		return ls
	}
	if len(f.Points) == 0 {
		return orb.Point{}
	}
	return f.Points[0].Point()
}

// ZoomForBounds picks the web-mercator zoom at which the box spans at most
// one 256px tile per axis.
func ZoomForBounds(b domain.BoundingBox) int {
	lngSpan := b.East - b.West
	latSpan := b.North - b.South
	span := math.Max(lngSpan, latSpan*2)
	if span <= 0 {
		return maxZoom
	}
	return clampZoom(int(math.Floor(math.Log2(360 / span))))
}

func clampZoom(z int) int {
	return max(minZoom, min(maxZoom, z))
}
