package ports

import (
	"context"
	"safe-route-service/internal/domain"
)

// Contract for the collaborator that scores a route's crime exposure.
type SafetyScorer interface {
	Assess(ctx context.Context, polyline []domain.Coordinate) (domain.SafetyAssessment, error)
}
