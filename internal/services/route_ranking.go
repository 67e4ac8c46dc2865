package services

import (
	"context"
	"fmt"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxRankedRoutes is how many candidates survive ranking.
const MaxRankedRoutes = 3

// Score every candidate concurrently and return one assessment per
// candidate, in candidate order.
//
// All requests are issued together and the call returns only after every
// one has settled. A failed request does not drop its candidate: it gets
// FallbackAssessment instead, so the result is always complete.
func ScoreCandidates(
	ctx context.Context,
	candidates []domain.RouteCandidate,
	scorer ports.SafetyScorer,
	log *zap.Logger,
) []domain.SafetyAssessment {
	assessments := make([]domain.SafetyAssessment, len(candidates))

	var g errgroup.Group
	for i, c := range candidates {
		g.Go(func() error {
			a, err := scorer.Assess(ctx, c.Polyline)
			if err != nil {
				log.Warn("scoring failed, using fallback assessment",
					zap.Int("candidate", c.Index),
					zap.Error(err),
				)
				assessments[i] = FallbackAssessment()
				return nil
			}
			assessments[i] = NormalizeAssessment(a)
			return nil
		})
	}
	_ = g.Wait()

	return assessments
}

// Rank scored candidates by score, highest first.
//
// Equal scores keep their original relative order and only the first
// MaxRankedRoutes are kept. assessments[i] belongs to candidates[i].
func RankRoutes(
	candidates []domain.RouteCandidate,
	assessments []domain.SafetyAssessment,
) ([]domain.RankedRoute, error) {
	if len(candidates) != len(assessments) {
		return nil, fmt.Errorf(
			"rank routes: %d candidates but %d assessments",
			len(candidates), len(assessments),
		)
	}

	ranked := make([]domain.RankedRoute, len(candidates))
	for i := range candidates {
		ranked[i] = domain.RankedRoute{
			RouteCandidate:   candidates[i],
			SafetyAssessment: assessments[i],
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if len(ranked) > MaxRankedRoutes {
		ranked = ranked[:MaxRankedRoutes]
	}
	return ranked, nil
}

// RouteRankingEngine holds the ranked list of a session and the selected
// alternative. Reselecting never re-ranks.
type RouteRankingEngine struct {
	mu       sync.Mutex
	routes   []domain.RankedRoute
	selected int
}

func NewRouteRankingEngine() *RouteRankingEngine {
	return &RouteRankingEngine{selected: -1}
}

// Load replaces the ranked list and selects the top-ranked route.
func (e *RouteRankingEngine) Load(routes []domain.RankedRoute) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.routes = append([]domain.RankedRoute(nil), routes...)
	e.selected = -1
	if len(e.routes) > 0 {
		e.selected = 0
	}
}

// Select makes the route at position i of the ranked list current.
func (e *RouteRankingEngine) Select(i int) (domain.RankedRoute, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i < 0 || i >= len(e.routes) {
		return domain.RankedRoute{}, &domain.ValidationError{
			Field:   "index",
			Message: fmt.Sprintf("route index %d out of range (have %d routes)", i, len(e.routes)),
		}
	}
	e.selected = i
	return e.routes[i], nil
}

// Selected returns the current route and its position in the list.
func (e *RouteRankingEngine) Selected() (domain.RankedRoute, int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.selected < 0 {
		return domain.RankedRoute{}, -1, false
	}
	return e.routes[e.selected], e.selected, true
}

func (e *RouteRankingEngine) Routes() []domain.RankedRoute {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.RankedRoute(nil), e.routes...)
}

// Update rewrites every route in place, e.g. to refresh derived texts.
func (e *RouteRankingEngine) Update(fn func(*domain.RankedRoute)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range e.routes {
		fn(&e.routes[i])
	}
}

func (e *RouteRankingEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.routes = nil
	e.selected = -1
}
