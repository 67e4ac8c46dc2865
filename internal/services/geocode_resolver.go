package services

import (
	"context"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"strings"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"go.uber.org/zap"
)

// Defaults for the Ogden, Utah deployment.
const (
	DefaultViewBox    = "-112.5,40.5,-111,42"
	DefaultCountry    = "us"
	DefaultRegionHint = " Utah"
	DefaultDebounce   = time.Second

	lookupTimeout = 15 * time.Second
)

type ResolverConfig struct {
	ViewBox      *domain.BoundingBox
	CountryCodes []string
	// Appended to every forward query, e.g. " Utah".
	RegionHint string
	Debounce   time.Duration
	Clock      clock.Clock
	Logger     *zap.Logger
}

// Callback for a debounced forward resolution that produced a result.
type ForwardHandler func(ctx context.Context, kind domain.MarkerType, res ports.GeocodeResult)

// GeocodeResolver resolves endpoint text to coordinates and back.
//
// Lookup failures are never returned to the caller: they are logged and
// the caller's state stays as it was.
type GeocodeResolver struct {
	geocoder   ports.Geocoder
	opts       ports.ForwardOptions
	regionHint string
	debouncer  *Debouncer
	log        *zap.Logger

	// Lifetime of debounced lookups; canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight map[domain.MarkerType]*lookup
}

// lookup is the forward call currently running for one field.
type lookup struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewGeocodeResolver(g ports.Geocoder, cfg ResolverConfig) *GeocodeResolver {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &GeocodeResolver{
		geocoder: g,
		opts: ports.ForwardOptions{
			ViewBox:      cfg.ViewBox,
			CountryCodes: cfg.CountryCodes,
		},
		regionHint: cfg.RegionHint,
		debouncer:  NewDebouncer(cfg.Clock, cfg.Debounce),
		log:        cfg.Logger.Named("geocode"),
		ctx:        ctx,
		cancel:     cancel,
		inflight:   make(map[domain.MarkerType]*lookup),
	}
}

// beginLookup registers a forward call for the field. The field's previous
// call is canceled and waited for, so at most one runs per field. finish
// must be called when the call returns.
func (r *GeocodeResolver) beginLookup(
	parent context.Context,
	kind domain.MarkerType,
) (_ context.Context, finish func()) {
	ctx, cancel := context.WithTimeout(parent, lookupTimeout)
	l := &lookup{cancel: cancel, done: make(chan struct{})}

	r.mu.Lock()
	prev := r.inflight[kind]
	r.inflight[kind] = l
	r.mu.Unlock()

	if prev != nil {
		prev.cancel()
		<-prev.done
	}

	return ctx, func() {
		cancel()
		r.mu.Lock()
		if r.inflight[kind] == l {
			delete(r.inflight, kind)
		}
		r.mu.Unlock()
		close(l.done)
	}
}

// abort cancels the field's running forward call without waiting for it.
func (r *GeocodeResolver) abort(kind domain.MarkerType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l := r.inflight[kind]; l != nil {
		l.cancel()
	}
}

// ResolveForward returns the best-ranked match for query. ok is false for
// blank queries, lookup failures and empty result sets.
func (r *GeocodeResolver) ResolveForward(
	ctx context.Context,
	query string,
	kind domain.MarkerType,
) (_ ports.GeocodeResult, ok bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return ports.GeocodeResult{}, false
	}

	var err error
	defer obs.Time(ctx, "geocode.ResolveForward")(&err)

	results, err := r.geocoder.Forward(ctx, q+r.regionHint, r.opts)
	if err != nil && ctx.Err() != nil {
		r.log.Debug("forward lookup aborted",
			zap.String("kind", string(kind)),
			zap.String("query", q),
		)
		return ports.GeocodeResult{}, false
	}
	if err != nil {
		r.log.Warn("forward lookup failed",
			zap.String("kind", string(kind)),
			zap.String("query", q),
			zap.Error(err),
		)
		return ports.GeocodeResult{}, false
	}
	if len(results) == 0 {
		r.log.Info("no forward results",
			zap.String("kind", string(kind)),
			zap.String("query", q),
		)
		return ports.GeocodeResult{}, false
	}

	return results[0], true
}

// ResolveReverse returns a display name for c, or c's "lat, lng" label
// when the lookup fails.
func (r *GeocodeResolver) ResolveReverse(ctx context.Context, c domain.Coordinate) string {
	var err error
	defer obs.Time(ctx, "geocode.ResolveReverse")(&err)

	name, err := r.geocoder.Reverse(ctx, c)
	if err != nil || strings.TrimSpace(name) == "" {
		r.log.Warn("reverse lookup failed, using coordinates",
			zap.Float64("lat", c.Lat),
			zap.Float64("lng", c.Lng),
			zap.Error(err),
		)
		return c.Label()
	}
	return name
}

// Typed schedules a forward lookup for the field once typing has paused.
// A pending lookup for the same field is canceled first, and a running one
// is aborted when the new lookup starts.
func (r *GeocodeResolver) Typed(kind domain.MarkerType, text string, onResult ForwardHandler) {
	if strings.TrimSpace(text) == "" {
		r.CancelPending(kind)
		return
	}

	r.debouncer.Schedule(string(kind), func() {
		ctx, finish := r.beginLookup(r.ctx, kind)
		defer finish()
		if ctx.Err() != nil {
			return
		}

		res, ok := r.ResolveForward(ctx, text, kind)
		if !ok {
			return
		}
		onResult(ctx, kind, res)
	})
}

// Commit resolves immediately, skipping the quiet period.
func (r *GeocodeResolver) Commit(
	ctx context.Context,
	kind domain.MarkerType,
	text string,
) (ports.GeocodeResult, bool) {
	r.debouncer.Cancel(string(kind))

	ctx, finish := r.beginLookup(ctx, kind)
	defer finish()
	return r.ResolveForward(ctx, text, kind)
}

// CancelPending drops a scheduled lookup for the field and aborts a
// running one.
func (r *GeocodeResolver) CancelPending(kind domain.MarkerType) {
	r.debouncer.Cancel(string(kind))
	r.abort(kind)
}

// Close stops scheduled lookups and aborts any running one.
func (r *GeocodeResolver) Close() {
	r.debouncer.Stop()
	r.cancel()
}
