package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

// Immutable geographic coordinates (latitude, longitude) in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinate) CoordsToList() []float64 { return []float64{c.Lng, c.Lat} }

// Point converts the coordinate to an orb point (X=lng, Y=lat).
func (c Coordinate) Point() orb.Point { return orb.Point{c.Lng, c.Lat} }

// Valid reports whether the coordinate lies within WGS84 bounds.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Label formats the coordinate the way it is shown when no address is known.
func (c Coordinate) Label() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

// Great-circle distance to another coordinate in meters.
func (c Coordinate) DistanceTo(o Coordinate) float64 {
	p1 := s2.LatLngFromDegrees(c.Lat, c.Lng)
	p2 := s2.LatLngFromDegrees(o.Lat, o.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

const EarthRadiusMeters = 6371000.0

// PolylineLength sums segment lengths of an ordered path in meters.
func PolylineLength(path []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i-1].DistanceTo(path[i])
	}
	return total
}

// BoundingBox is an axis-aligned lat/lng rectangle.
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// BoundsOf returns the smallest box containing every coordinate.
// The second value is false when coords is empty.
func BoundsOf(coords []Coordinate) (BoundingBox, bool) {
	if len(coords) == 0 {
		return BoundingBox{}, false
	}

	mp := make(orb.MultiPoint, 0, len(coords))
	for _, c := range coords {
		mp = append(mp, c.Point())
	}
	b := mp.Bound()

	return BoundingBox{
		South: b.Min.Lat(),
		West:  b.Min.Lon(),
		North: b.Max.Lat(),
		East:  b.Max.Lon(),
	}, true
}

// Pad extends each side by ratio of the box's span on that axis.
func (b BoundingBox) Pad(ratio float64) BoundingBox {
	dLat := (b.North - b.South) * ratio
	dLng := (b.East - b.West) * ratio
	return BoundingBox{
		South: b.South - dLat,
		West:  b.West - dLng,
		North: b.North + dLat,
		East:  b.East + dLng,
	}
}

func (b BoundingBox) Center() Coordinate {
	return Coordinate{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lng >= b.West && c.Lng <= b.East
}

// ViewBox formats the box as "west,south,east,north".
func (b BoundingBox) ViewBox() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}

// ParseViewBox reads a "west,south,east,north" string.
func ParseViewBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("viewbox %q: want 4 comma-separated values", s)
	}

	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("viewbox %q: %w", s, err)
		}
		v[i] = f
	}

	b := BoundingBox{West: v[0], South: v[1], East: v[2], North: v[3]}
	if b.South > b.North || b.West > b.East {
		return BoundingBox{}, fmt.Errorf("viewbox %q: inverted bounds", s)
	}
	return b, nil
}
