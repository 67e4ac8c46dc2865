package domain

// ValidationError is surfaced to the user before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// DirectionsError carries the directions collaborator's failure status.
type DirectionsError struct {
	Status string
	Err    error
}

func (e *DirectionsError) Error() string {
	if e.Err != nil {
		return "directions: " + e.Status + ": " + e.Err.Error()
	}
	return "directions: " + e.Status
}

func (e *DirectionsError) Unwrap() error { return e.Err }

// Status values reported when the provider itself answers without a route.
const (
	DirectionsZeroResults = "ZERO_RESULTS"
	DirectionsNotFound    = "NOT_FOUND"
	DirectionsUnavailable = "UNKNOWN_ERROR"
)
