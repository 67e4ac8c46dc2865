package domain

// SafetyCategory classifies a route's crime exposure.
type SafetyCategory string

const (
	CategorySafe    SafetyCategory = "safe"
	CategoryWarning SafetyCategory = "warning"
	CategoryDanger  SafetyCategory = "danger"
)

func (c SafetyCategory) Valid() bool {
	switch c {
	case CategorySafe, CategoryWarning, CategoryDanger:
		return true
	default:
		return false
	}
}

// Represents one alternative path returned by the directions collaborator.
// Index is the position in the collaborator's response and identifies the
// candidate after ranking reorders the list.
type RouteCandidate struct {
	Index           int          `json:"index"`
	Polyline        []Coordinate `json:"polyline"`
	DistanceText    string       `json:"distance_text"`
	DurationText    string       `json:"duration_text"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
}

// Describes a candidate route's crime exposure.
type SafetyAssessment struct {
	Score                  float64        `json:"score"`
	Category               SafetyCategory `json:"category"`
	AffectingIncidentCount int            `json:"affecting_incident_count"`
}

// Represents a scored candidate in the ranked list.
// A RankedRoute is immutable planning data and contains no side effects.
type RankedRoute struct {
	RouteCandidate
	SafetyAssessment
	PaceDurationText string `json:"pace_duration_text,omitempty"`
}
