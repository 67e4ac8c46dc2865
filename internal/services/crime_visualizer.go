package services

import (
	"fmt"
	"math"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// FitPadding is the fraction of the data span added on each side by FitToData.
const FitPadding = 0.1

// Fixed style of one severity band.
type bandStyle struct {
	color        colorful.Color
	heatRadiusM  float64
	pointRadiusP float64
}

var bandStyles = map[domain.SeverityBand]bandStyle{
	domain.BandLow:    {color: mustHex("#eab308"), heatRadiusM: 100, pointRadiusP: 8},
	domain.BandMedium: {color: mustHex("#f59e0b"), heatRadiusM: 200, pointRadiusP: 12},
	domain.BandHigh:   {color: mustHex("#ef4444"), heatRadiusM: 300, pointRadiusP: 16},
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// rgba renders a CSS rgba() color.
func rgba(c colorful.Color, alpha float64) string {
	r, g, b := c.RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %.2f)", r, g, b, alpha)
}

// Builds the crime layer for one display mode. ok is false when the mode
// draws nothing.
type renderStrategy func(incidents []domain.CrimeIncident, maxWeight float64) (layer domain.Layer, ok bool)

func strategyFor(mode domain.DisplayMode) (renderStrategy, error) {
	switch mode {
	case domain.DisplayMap:
		return renderPlain, nil
	case domain.DisplayHeatmap:
		return renderHeatmap, nil
	case domain.DisplayPoints:
		return renderPoints, nil
	default:
		return nil, fmt.Errorf("crime visualizer: unknown display mode %q", mode)
	}
}

func renderPlain([]domain.CrimeIncident, float64) (domain.Layer, bool) {
	return domain.Layer{}, false
}

func renderHeatmap(incidents []domain.CrimeIncident, maxWeight float64) (domain.Layer, bool) {
	features := make([]domain.Feature, 0, len(incidents))
	for _, inc := range incidents {
		intensity := domain.Intensity(inc.Weight, maxWeight)
		band := domain.BandFor(intensity)
		st := bandStyles[band]
		opacity := 0.2 + 0.4*intensity

		features = append(features, domain.Feature{
			Shape:  domain.ShapeCircle,
			Points: []domain.Coordinate{inc.Coordinate},
			Style: domain.Style{
				FillColor:   st.color.Hex(),
				FillOpacity: opacity,
				Radius:      st.heatRadiusM,
			},
			Props: map[string]any{
				"weight":    inc.Weight,
				"intensity": intensity,
				"band":      string(band),
				"fill":      rgba(st.color, opacity),
			},
		})
	}
	return domain.Layer{Kind: domain.LayerCrime, Name: string(domain.DisplayHeatmap), Features: features}, true
}

func renderPoints(incidents []domain.CrimeIncident, maxWeight float64) (domain.Layer, bool) {
	features := make([]domain.Feature, 0, len(incidents))
	for _, inc := range incidents {
		intensity := domain.Intensity(inc.Weight, maxWeight)
		band := domain.BandFor(intensity)
		st := bandStyles[band]

		features = append(features, domain.Feature{
			Shape:  domain.ShapeCircleMarker,
			Points: []domain.Coordinate{inc.Coordinate},
			Style: domain.Style{
				Color:       "#000",
				Weight:      3,
				FillColor:   st.color.Hex(),
				FillOpacity: 0.9,
				Radius:      st.pointRadiusP,
			},
			Popup: PointTooltip(inc.Weight, intensity),
			Props: map[string]any{
				"weight":    inc.Weight,
				"intensity": intensity,
				"band":      string(band),
				"fill":      rgba(st.color, 0.9),
			},
		})
	}
	return domain.Layer{Kind: domain.LayerCrime, Name: string(domain.DisplayPoints), Features: features}, true
}

// PointTooltip shows raw weight and intensity as a whole percentage.
func PointTooltip(weight, intensity float64) string {
	return fmt.Sprintf("Crime Weight: %g<br/>Intensity: %d%%", weight, int(math.Round(intensity*100)))
}

// CrimeVisualizer draws the loaded dataset in one display mode. It keeps
// at most one crime layer on the surface.
type CrimeVisualizer struct {
	surface ports.MapSurface

	mu    sync.Mutex
	layer domain.LayerID
	mode  domain.DisplayMode
}

func NewCrimeVisualizer(surface ports.MapSurface) *CrimeVisualizer {
	return &CrimeVisualizer{surface: surface, mode: domain.DisplayMap}
}

// Render replaces the current crime layer with incidents drawn in mode.
func (v *CrimeVisualizer) Render(mode domain.DisplayMode, incidents []domain.CrimeIncident) error {
	strategy, err := strategyFor(mode)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.clearLocked()
	v.mode = mode

	if len(incidents) == 0 {
		return nil
	}
	layer, ok := strategy(incidents, domain.MaxWeight(incidents))
	if !ok {
		return nil
	}
	v.layer = v.surface.AddLayer(layer)
	return nil
}

// FitToData adjusts the viewport to contain every incident. It does
// nothing for an empty dataset.
func (v *CrimeVisualizer) FitToData(incidents []domain.CrimeIncident) bool {
	coords := make([]domain.Coordinate, len(incidents))
	for i, inc := range incidents {
		coords[i] = inc.Coordinate
	}
	b, ok := domain.BoundsOf(coords)
	if !ok {
		return false
	}
	v.surface.FitBounds(b.Pad(FitPadding))
	return true
}

func (v *CrimeVisualizer) Mode() domain.DisplayMode {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mode
}

// Active reports whether a crime layer is on the surface.
func (v *CrimeVisualizer) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.layer != 0
}

func (v *CrimeVisualizer) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.clearLocked()
}

func (v *CrimeVisualizer) clearLocked() {
	if v.layer != 0 {
		v.surface.RemoveLayer(v.layer)
		v.layer = 0
	}
}
