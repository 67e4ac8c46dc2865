package services

import (
	"context"
	"safe-route-service/internal/domain"
	"sync"

	"go.uber.org/zap"
)

// Resolves a coordinate to a label. Never fails.
type ReverseFunc func(ctx context.Context, c domain.Coordinate) string

// Places a marker for a resolved pin drop.
type PlaceFunc func(kind domain.MarkerType, c domain.Coordinate, label string)

// PinDropController gates map clicks into marker placement.
//
// Each Request issues a new token. A click captures the current token and
// its result is applied only if that token is still current when the
// reverse lookup settles.
type PinDropController struct {
	mu    sync.Mutex
	state domain.PinDropState
	token uint64
	log   *zap.Logger
}

func NewPinDropController(log *zap.Logger) *PinDropController {
	if log == nil {
		log = zap.L()
	}
	return &PinDropController{log: log.Named("pindrop")}
}

// Request arms the controller for kind, overwriting any current target.
func (p *PinDropController) Request(kind domain.MarkerType) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token++
	p.state = domain.AwaitingState(kind)
}

// Cancel returns to Idle and invalidates any in-flight click.
func (p *PinDropController) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token++
	p.state = domain.PinDropIdle
}

func (p *PinDropController) State() domain.PinDropState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// HandleClick places a marker at c for the awaited endpoint. Clicks while
// Idle are ignored. It reports whether a marker was placed.
func (p *PinDropController) HandleClick(
	ctx context.Context,
	c domain.Coordinate,
	resolve ReverseFunc,
	place PlaceFunc,
) bool {
	p.mu.Lock()
	kind, awaiting := p.state.Target()
	token := p.token
	p.mu.Unlock()

	if !awaiting {
		return false
	}

	label := resolve(ctx, c)

	p.mu.Lock()
	current := token == p.token && p.state == domain.AwaitingState(kind)
	if current {
		p.state = domain.PinDropIdle
	}
	p.mu.Unlock()

	if !current {
		p.log.Info("discarding stale pin drop",
			zap.String("kind", string(kind)),
			zap.Float64("lat", c.Lat),
			zap.Float64("lng", c.Lng),
		)
		return false
	}

	place(kind, c, label)
	return true
}
