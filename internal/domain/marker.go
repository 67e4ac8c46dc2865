package domain

import "fmt"

// MarkerType identifies which route endpoint a marker or query belongs to.
type MarkerType string

const (
	MarkerStart MarkerType = "start"
	MarkerEnd   MarkerType = "end"
)

// ParseMarkerType accepts "start" or "end".
func ParseMarkerType(s string) (MarkerType, error) {
	switch MarkerType(s) {
	case MarkerStart, MarkerEnd:
		return MarkerType(s), nil
	default:
		return "", fmt.Errorf("unknown marker type %q", s)
	}
}

// Title is the popup heading shown for the marker type.
func (t MarkerType) Title() string {
	if t == MarkerStart {
		return "Start Location"
	}
	return "Destination"
}

// A placed route endpoint. ID survives drags; a replacement gets a new ID.
type Marker struct {
	ID         string     `json:"id"`
	Type       MarkerType `json:"type"`
	Coordinate Coordinate `json:"coordinate"`
	Label      string     `json:"label"`
}

// Free text typed for an endpoint plus its resolution, if any.
type PlaceQuery struct {
	Text       string      `json:"text"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	Label      string      `json:"label,omitempty"`
}

func (q PlaceQuery) Resolved() bool { return q.Coordinate != nil }

// PinDropState tracks whether the next map click places a marker.
type PinDropState int

const (
	PinDropIdle PinDropState = iota
	PinDropAwaitingStart
	PinDropAwaitingEnd
)

func (s PinDropState) String() string {
	switch s {
	case PinDropAwaitingStart:
		return "awaiting_start"
	case PinDropAwaitingEnd:
		return "awaiting_end"
	default:
		return "idle"
	}
}

// Target returns the marker type awaited, if any.
func (s PinDropState) Target() (MarkerType, bool) {
	switch s {
	case PinDropAwaitingStart:
		return MarkerStart, true
	case PinDropAwaitingEnd:
		return MarkerEnd, true
	default:
		return "", false
	}
}

// AwaitingState maps a marker type to its awaiting state.
func AwaitingState(t MarkerType) PinDropState {
	if t == MarkerStart {
		return PinDropAwaitingStart
	}
	return PinDropAwaitingEnd
}

func (s PinDropState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PinDropState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = PinDropIdle
	case "awaiting_start":
		*s = PinDropAwaitingStart
	case "awaiting_end":
		*s = PinDropAwaitingEnd
	default:
		return fmt.Errorf("unknown pin drop state %q", b)
	}
	return nil
}
