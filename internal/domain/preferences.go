package domain

import "fmt"

// DisplayMode selects how crime data is drawn on the map.
type DisplayMode string

const (
	DisplayMap     DisplayMode = "map"
	DisplayHeatmap DisplayMode = "heatmap"
	DisplayPoints  DisplayMode = "points"
)

func ParseDisplayMode(s string) (DisplayMode, error) {
	switch DisplayMode(s) {
	case DisplayMap, DisplayHeatmap, DisplayPoints:
		return DisplayMode(s), nil
	default:
		return "", fmt.Errorf("unknown display mode %q", s)
	}
}

type RouteType string

const (
	RouteDirect     RouteType = "direct"
	RouteLoop       RouteType = "loop"
	RouteOutAndBack RouteType = "outAndBack"
)

// User-adjustable routing preferences. Weights are 0-100 slider values,
// Pace is minutes per mile.
type UserPreferences struct {
	SafetyWeight   int         `json:"safety_weight"`
	DistanceWeight int         `json:"distance_weight"`
	TimeWeight     int         `json:"time_weight"`
	RouteType      RouteType   `json:"route_type"`
	DisplayMode    DisplayMode `json:"display_mode"`
	Pace           int         `json:"pace"`
	AccountForPace bool        `json:"account_for_pace"`
}

const (
	MinPace = 5
	MaxPace = 30
)

func DefaultPreferences() UserPreferences {
	return UserPreferences{
		SafetyWeight:   70,
		DistanceWeight: 50,
		TimeWeight:     50,
		RouteType:      RouteDirect,
		DisplayMode:    DisplayMap,
		Pace:           15,
	}
}

// Validate checks every field; the first violation is returned.
func (p UserPreferences) Validate() error {
	weights := []struct {
		name string
		v    int
	}{
		{"safety_weight", p.SafetyWeight},
		{"distance_weight", p.DistanceWeight},
		{"time_weight", p.TimeWeight},
	}
	for _, w := range weights {
		if w.v < 0 || w.v > 100 {
			return &ValidationError{Field: w.name, Message: fmt.Sprintf("%s must be between 0 and 100", w.name)}
		}
	}

	switch p.RouteType {
	case RouteDirect, RouteLoop, RouteOutAndBack:
	default:
		return &ValidationError{Field: "route_type", Message: fmt.Sprintf("unknown route type %q", p.RouteType)}
	}

	if _, err := ParseDisplayMode(string(p.DisplayMode)); err != nil {
		return &ValidationError{Field: "display_mode", Message: err.Error()}
	}

	if p.Pace < MinPace || p.Pace > MaxPace {
		return &ValidationError{Field: "pace", Message: fmt.Sprintf("pace must be between %d and %d min/mile", MinPace, MaxPace)}
	}

	return nil
}
