package services

import (
	"context"
	"errors"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"sync"
)

var errLookup = errors.New("lookup failed")

type forwardCall struct {
	Query string
	Opts  ports.ForwardOptions
}

// fakeGeocoder answers forward lookups from a table and reverse lookups
// with a fixed name or error. reverseGate, when set, blocks Reverse until
// a value is received; forwardGate does the same per forward query.
type fakeGeocoder struct {
	mu          sync.Mutex
	forward     map[string][]ports.GeocodeResult
	forwardErr  error
	forwardGate map[string]chan struct{}
	reverseName string
	reverseErr  error
	reverseGate chan struct{}

	forwardCalls []forwardCall
	reverseCalls []domain.Coordinate
	inflight     int
	maxInflight  int
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		forward:     make(map[string][]ports.GeocodeResult),
		forwardGate: make(map[string]chan struct{}),
	}
}

func (g *fakeGeocoder) Forward(ctx context.Context, query string, opts ports.ForwardOptions) ([]ports.GeocodeResult, error) {
	g.mu.Lock()
	g.forwardCalls = append(g.forwardCalls, forwardCall{Query: query, Opts: opts})
	g.inflight++
	if g.inflight > g.maxInflight {
		g.maxInflight = g.inflight
	}
	gate := g.forwardGate[query]
	res, err := g.forward[query], g.forwardErr
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.inflight--
		g.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (g *fakeGeocoder) Inflight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inflight
}

func (g *fakeGeocoder) MaxInflight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxInflight
}

func (g *fakeGeocoder) Reverse(ctx context.Context, c domain.Coordinate) (string, error) {
	g.mu.Lock()
	g.reverseCalls = append(g.reverseCalls, c)
	gate := g.reverseGate
	name, err := g.reverseName, g.reverseErr
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return name, err
}

func (g *fakeGeocoder) ForwardCalls() []forwardCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]forwardCall(nil), g.forwardCalls...)
}

func (g *fakeGeocoder) ReverseCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.reverseCalls)
}

// fakeScorer scores a polyline by its first point's latitude. When hold
// is set, the first call closes entered and blocks until hold is closed.
type fakeScorer struct {
	mu     sync.Mutex
	byLat  map[float64]domain.SafetyAssessment
	failAt map[float64]bool
	calls  int

	hold    chan struct{}
	entered chan struct{}
	held    bool

	// onAssess runs at the start of every call.
	onAssess func()
}

func newFakeScorer() *fakeScorer {
	return &fakeScorer{
		byLat:  make(map[float64]domain.SafetyAssessment),
		failAt: make(map[float64]bool),
	}
}

func (s *fakeScorer) Assess(ctx context.Context, polyline []domain.Coordinate) (domain.SafetyAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.onAssess != nil {
		s.onAssess()
	}
	if s.hold != nil && !s.held {
		s.held = true
		hold := s.hold
		s.mu.Unlock()
		close(s.entered)
		<-hold
		s.mu.Lock()
	}
	lat := polyline[0].Lat
	if s.failAt[lat] {
		return domain.SafetyAssessment{}, errors.New("scoring service unavailable")
	}
	a, ok := s.byLat[lat]
	if !ok {
		return domain.SafetyAssessment{}, errors.New("unexpected polyline")
	}
	return a, nil
}

func (s *fakeScorer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeCrimeProvider struct {
	mu       sync.Mutex
	ids      []string
	listErr  error
	data     map[string][]domain.CrimeIncident
	loadErr  map[string]error
	info     map[string]domain.CrimeDatasetSummary
	loadGate map[string]chan struct{}
}

func newFakeCrimeProvider() *fakeCrimeProvider {
	return &fakeCrimeProvider{
		data:     make(map[string][]domain.CrimeIncident),
		loadErr:  make(map[string]error),
		info:     make(map[string]domain.CrimeDatasetSummary),
		loadGate: make(map[string]chan struct{}),
	}
}

func (p *fakeCrimeProvider) ListDatasets(ctx context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ids, p.listErr
}

func (p *fakeCrimeProvider) LoadDataset(ctx context.Context, id string) ([]domain.CrimeIncident, error) {
	p.mu.Lock()
	gate := p.loadGate[id]
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.loadErr[id]; err != nil {
		return nil, err
	}
	inc, ok := p.data[id]
	if !ok {
		return nil, errors.New("dataset not found")
	}
	return inc, nil
}

func (p *fakeCrimeProvider) DatasetInfo(ctx context.Context, id string) (domain.CrimeDatasetSummary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.info[id]
	if !ok {
		return domain.CrimeDatasetSummary{}, errors.New("no info")
	}
	return s, nil
}

func incident(lat, lng, w float64) domain.CrimeIncident {
	return domain.CrimeIncident{Coordinate: domain.Coordinate{Lat: lat, Lng: lng}, Weight: w}
}
