package services

import (
	"context"
	"errors"
	"fmt"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/obs"
	"safe-route-service/internal/ports"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Zoom used when centering on a single resolved endpoint.
const EndpointZoom = 13

const (
	msgMissingEndpoints = "Please enter both starting location and destination."
	msgCalculating      = "Calculating routes and analyzing safety..."
	msgNoRoute          = "Could not find a route: %s"
)

// Collaborators of one routing session.
type Deps struct {
	Geocoder   ports.Geocoder
	Directions ports.DirectionsProvider
	Scorer     ports.SafetyScorer
	Crime      ports.CrimeDatasetProvider
	Surface    ports.MapSurface
}

type Options struct {
	Resolver       ResolverConfig
	DefaultDataset string
	Logger         *zap.Logger
}

// RoutingOrchestrator drives one map instance: endpoint resolution, pin
// drops, markers, crime visualization and safety-ranked routing.
//
// Every map layer is written by exactly one owner (MarkerRegistry or
// CrimeVisualizer). The orchestrator lock is never held across a network
// call; superseded results are detected with request tokens.
type RoutingOrchestrator struct {
	directions ports.DirectionsProvider
	scorer     ports.SafetyScorer
	surface    ports.MapSurface
	log        *zap.Logger

	resolver   *GeocodeResolver
	pins       *PinDropController
	markers    *MarkerRegistry
	dataset    *CrimeDataset
	visualizer *CrimeVisualizer
	ranking    *RouteRankingEngine

	// Serializes crime layer rendering so the last render shows the
	// current dataset.
	renderMu sync.Mutex

	mu         sync.Mutex
	prefs      domain.UserPreferences
	places     map[domain.MarkerType]domain.PlaceQuery
	// Per-field forward lookup tokens; a result applies only while its
	// token is current.
	forwardTokens map[domain.MarkerType]uint64
	status     domain.StatusMessage
	locating   int
	routing    bool
	routeToken uint64
	datasets   []string
	destroyed  bool
}

func NewRoutingOrchestrator(deps Deps, opts Options) *RoutingOrchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	opts.Resolver.Logger = log

	return &RoutingOrchestrator{
		directions: deps.Directions,
		scorer:     deps.Scorer,
		surface:    deps.Surface,
		log:        log.Named("routing"),
		resolver:   NewGeocodeResolver(deps.Geocoder, opts.Resolver),
		pins:       NewPinDropController(log),
		markers:    NewMarkerRegistry(deps.Surface),
		dataset:    NewCrimeDataset(deps.Crime, opts.DefaultDataset, log),
		visualizer: NewCrimeVisualizer(deps.Surface),
		ranking:    NewRouteRankingEngine(),
		prefs:      domain.DefaultPreferences(),
		places: map[domain.MarkerType]domain.PlaceQuery{
			domain.MarkerStart: {},
			domain.MarkerEnd:   {},
		},
		forwardTokens: make(map[domain.MarkerType]uint64),
	}
}

// Init lists the crime datasets and loads the initial one. Failures fall
// back to the built-in sample.
func (o *RoutingOrchestrator) Init(ctx context.Context) {
	ids, initial, err := o.dataset.List(ctx)
	if err != nil {
		o.log.Warn("listing datasets failed, using built-in sample", zap.Error(err))
	}

	o.mu.Lock()
	o.datasets = ids
	o.mu.Unlock()

	if initial == "" {
		o.dataset.UseFallback()
		o.renderCrime()
		return
	}
	o.selectDataset(ctx, initial)
}

// Preferences

func (o *RoutingOrchestrator) Preferences() domain.UserPreferences {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.prefs
}

// UpdatePreferences replaces the preferences. A display mode change
// redraws the crime layer; a pace change refreshes route durations.
func (o *RoutingOrchestrator) UpdatePreferences(p domain.UserPreferences) error {
	if err := p.Validate(); err != nil {
		return err
	}

	o.mu.Lock()
	old := o.prefs
	o.prefs = p
	o.mu.Unlock()

	if old.DisplayMode != p.DisplayMode {
		o.renderCrime()
	}
	if old.AccountForPace != p.AccountForPace || old.Pace != p.Pace {
		o.ranking.Update(func(r *domain.RankedRoute) { applyPace(r, p) })
		o.mu.Lock()
		if sel, _, ok := o.ranking.Selected(); ok && !o.routing {
			o.status = RouteMessage(sel)
		}
		o.mu.Unlock()
	}
	return nil
}

// Endpoints

func (o *RoutingOrchestrator) Place(kind domain.MarkerType) domain.PlaceQuery {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.places[kind]
}

// TypePlace records typed text and resolves it once typing pauses.
func (o *RoutingOrchestrator) TypePlace(kind domain.MarkerType, text string) {
	o.mu.Lock()
	q := o.places[kind]
	q.Text = text
	o.places[kind] = q
	token := o.bumpForwardLocked(kind)
	o.mu.Unlock()

	o.resolver.Typed(kind, text, func(_ context.Context, kind domain.MarkerType, res ports.GeocodeResult) {
		o.applyForward(kind, token, res)
	})
}

// CommitPlace resolves text immediately. It reports whether the endpoint
// was resolved; a failed or superseded lookup leaves the endpoint unchanged.
func (o *RoutingOrchestrator) CommitPlace(ctx context.Context, kind domain.MarkerType, text string) bool {
	o.mu.Lock()
	q := o.places[kind]
	q.Text = text
	o.places[kind] = q
	token := o.bumpForwardLocked(kind)
	o.mu.Unlock()

	done := o.beginLocating()
	res, ok := o.resolver.Commit(ctx, kind, text)
	done()

	if !ok {
		return false
	}
	return o.applyForward(kind, token, res)
}

// bumpForwardLocked invalidates every forward lookup started for kind.
func (o *RoutingOrchestrator) bumpForwardLocked(kind domain.MarkerType) uint64 {
	o.forwardTokens[kind]++
	return o.forwardTokens[kind]
}

// applyForward places the endpoint unless a newer edit of the field has
// happened since the lookup started.
func (o *RoutingOrchestrator) applyForward(kind domain.MarkerType, token uint64, res ports.GeocodeResult) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.destroyed {
		return false
	}
	if token != o.forwardTokens[kind] {
		o.log.Info("discarding superseded forward lookup",
			zap.String("kind", string(kind)),
			zap.String("label", res.DisplayName),
		)
		return false
	}
	q := o.places[kind]
	c := res.Coordinate
	q.Coordinate = &c
	q.Label = res.DisplayName
	o.places[kind] = q

	o.placeMarkerLocked(kind, c, res.DisplayName)
	return true
}

// placeMarkerLocked replaces the endpoint marker and invalidates routes
// that no longer connect the markers.
func (o *RoutingOrchestrator) placeMarkerLocked(kind domain.MarkerType, c domain.Coordinate, label string) {
	o.markers.Create(kind, c, label)
	o.invalidateRoutesLocked()

	placed := o.markers.Markers()
	if len(placed) == 1 {
		o.surface.SetView(c, EndpointZoom)
		return
	}
	o.fitLocked(nil)
}

// Pin drops

func (o *RoutingOrchestrator) RequestPinDrop(kind domain.MarkerType) {
	o.pins.Request(kind)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = domain.StatusMessage{
		Kind: domain.MessageInfo,
		Text: fmt.Sprintf("Click on the map to set the %s.", pinTarget(kind)),
	}
}

func pinTarget(kind domain.MarkerType) string {
	if kind == domain.MarkerStart {
		return "starting location"
	}
	return "destination"
}

func (o *RoutingOrchestrator) CancelPinDrop() {
	o.pins.Cancel()

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status.Kind == domain.MessageInfo {
		o.status = domain.StatusMessage{}
	}
}

// HandleMapClick places the awaited marker at c. It reports whether a
// marker was placed; clicks while no pin drop is pending are ignored.
func (o *RoutingOrchestrator) HandleMapClick(ctx context.Context, c domain.Coordinate) (bool, error) {
	if !c.Valid() {
		return false, &domain.ValidationError{Field: "coordinate", Message: "click coordinate is out of range"}
	}

	done := o.beginLocating()
	defer done()

	placed := o.pins.HandleClick(ctx, c, o.resolver.ResolveReverse, func(kind domain.MarkerType, at domain.Coordinate, label string) {
		o.mu.Lock()
		defer o.mu.Unlock()

		if o.destroyed {
			return
		}
		o.bumpForwardLocked(kind)
		o.places[kind] = domain.PlaceQuery{Text: label, Coordinate: &at, Label: label}
		if o.status.Kind == domain.MessageInfo {
			o.status = domain.StatusMessage{}
		}
		o.placeMarkerLocked(kind, at, label)
	})
	return placed, nil
}

func (o *RoutingOrchestrator) PinDropState() domain.PinDropState {
	return o.pins.State()
}

// Markers

// DragMarker moves an existing marker and re-resolves its label.
func (o *RoutingOrchestrator) DragMarker(
	ctx context.Context,
	kind domain.MarkerType,
	c domain.Coordinate,
) (domain.Marker, error) {
	if !c.Valid() {
		return domain.Marker{}, &domain.ValidationError{Field: "coordinate", Message: "marker coordinate is out of range"}
	}
	if _, ok := o.markers.Marker(kind); !ok {
		return domain.Marker{}, &domain.ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("no %s marker to move", kind),
		}
	}

	done := o.beginLocating()
	m, ok := o.markers.Drag(ctx, kind, c, o.resolver.ResolveReverse)
	done()

	if !ok {
		current, _ := o.markers.Marker(kind)
		return current, nil
	}

	o.resolver.CancelPending(kind)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.bumpForwardLocked(kind)
	o.places[kind] = domain.PlaceQuery{Text: m.Label, Coordinate: &m.Coordinate, Label: m.Label}
	o.invalidateRoutesLocked()
	return m, nil
}

// ClearMarkers removes both markers and the route line and resets both
// endpoint texts.
func (o *RoutingOrchestrator) ClearMarkers() {
	o.resolver.CancelPending(domain.MarkerStart)
	o.resolver.CancelPending(domain.MarkerEnd)

	o.mu.Lock()
	defer o.mu.Unlock()

	o.bumpForwardLocked(domain.MarkerStart)
	o.bumpForwardLocked(domain.MarkerEnd)
	o.markers.Clear()
	o.ranking.Reset()
	o.routeToken++
	o.routing = false
	o.places[domain.MarkerStart] = domain.PlaceQuery{}
	o.places[domain.MarkerEnd] = domain.PlaceQuery{}
	o.status = domain.StatusMessage{}
}

// Crime datasets

func (o *RoutingOrchestrator) Datasets(ctx context.Context) ([]string, error) {
	ids, _, err := o.dataset.List(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.datasets = ids
	o.mu.Unlock()
	return ids, nil
}

// SelectDataset loads the dataset and redraws the crime layer.
func (o *RoutingOrchestrator) SelectDataset(ctx context.Context, id string) (DatasetSnapshot, error) {
	if id == "" {
		return DatasetSnapshot{}, &domain.ValidationError{Field: "id", Message: "dataset id is required"}
	}
	return o.selectDataset(ctx, id), nil
}

func (o *RoutingOrchestrator) selectDataset(ctx context.Context, id string) DatasetSnapshot {
	snap, applied := o.dataset.Select(ctx, id)
	if applied {
		o.renderCrime()
	}
	return snap
}

// FitToData fits the viewport to the loaded incidents.
func (o *RoutingOrchestrator) FitToData() bool {
	return o.visualizer.FitToData(o.dataset.Snapshot().Incidents)
}

func (o *RoutingOrchestrator) renderCrime() {
	o.renderMu.Lock()
	defer o.renderMu.Unlock()

	o.mu.Lock()
	mode := o.prefs.DisplayMode
	destroyed := o.destroyed
	o.mu.Unlock()
	if destroyed {
		return
	}

	if err := o.visualizer.Render(mode, o.dataset.Snapshot().Incidents); err != nil {
		o.log.Error("render crime layer", zap.Error(err))
	}
}

// Routing

// FindRoutes requests candidate routes, scores each one and shows the
// safest. A missing endpoint returns *domain.ValidationError before any
// network call. Directions failures are reported through the status
// message, not as an error.
func (o *RoutingOrchestrator) FindRoutes(ctx context.Context) (err error) {
	defer obs.Time(ctx, "routing.FindRoutes")(&err)

	o.mu.Lock()
	start, end := o.places[domain.MarkerStart], o.places[domain.MarkerEnd]
	if !start.Resolved() || !end.Resolved() {
		o.status = domain.StatusMessage{Kind: domain.MessageWarning, Text: msgMissingEndpoints}
		o.mu.Unlock()
		return &domain.ValidationError{Field: "places", Message: msgMissingEndpoints}
	}

	o.routeToken++
	token := o.routeToken
	o.routing = true
	o.status = domain.StatusMessage{Kind: domain.MessageInfo, Text: msgCalculating}
	o.ranking.Reset()
	o.markers.ClearRouteLine()
	prefs := o.prefs
	o.mu.Unlock()

	candidates, dirErr := o.directions.Route(ctx, ports.DirectionsRequest{
		Origin:        *start.Coordinate,
		Destination:   *end.Coordinate,
		Mode:          ports.TravelWalking,
		AvoidHighways: true,
		Alternatives:  true,
	})
	if ctx.Err() != nil {
		return o.abandonRouting(ctx, token)
	}
	if dirErr == nil && len(candidates) == 0 {
		dirErr = &domain.DirectionsError{Status: domain.DirectionsZeroResults}
	}
	if dirErr != nil {
		o.log.Warn("directions failed", zap.Error(dirErr))

		o.mu.Lock()
		defer o.mu.Unlock()
		if token == o.routeToken {
			o.routing = false
			o.status = domain.StatusMessage{
				Kind: domain.MessageDanger,
				Text: fmt.Sprintf(msgNoRoute, directionsStatus(dirErr)),
			}
		}
		return nil
	}

	assessments := ScoreCandidates(ctx, candidates, o.scorer, o.log)
	if ctx.Err() != nil {
		return o.abandonRouting(ctx, token)
	}
	ranked, err := RankRoutes(candidates, assessments)
	if err != nil {
		return err
	}
	for i := range ranked {
		applyPace(&ranked[i], prefs)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if token != o.routeToken || o.destroyed {
		o.log.Info("discarding superseded route result")
		return nil
	}
	o.routing = false
	o.ranking.Load(ranked)
	o.renderSelectedLocked()
	return nil
}

// abandonRouting ends a route request whose context was canceled. Scores
// filled in by the fallback would be invented, so nothing is ranked.
func (o *RoutingOrchestrator) abandonRouting(ctx context.Context, token uint64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if token == o.routeToken {
		o.routing = false
		o.status = domain.StatusMessage{}
	}
	return eris.Wrap(ctx.Err(), "routing: find routes")
}

// SelectRoute shows another retained alternative without re-ranking.
func (o *RoutingOrchestrator) SelectRoute(i int) (domain.RankedRoute, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, err := o.ranking.Select(i)
	if err != nil {
		return domain.RankedRoute{}, err
	}
	o.renderSelectedLocked()
	return r, nil
}

func (o *RoutingOrchestrator) renderSelectedLocked() {
	sel, _, ok := o.ranking.Selected()
	if !ok {
		return
	}
	o.markers.SetRouteLine(sel.Polyline, sel.Score, RoutePopup(sel))
	o.fitLocked(sel.Polyline)
	o.status = RouteMessage(sel)
}

// fitLocked fits the viewport to both markers and extra points.
func (o *RoutingOrchestrator) fitLocked(extra []domain.Coordinate) {
	var pts []domain.Coordinate
	for _, m := range o.markers.Markers() {
		pts = append(pts, m.Coordinate)
	}
	pts = append(pts, extra...)

	if b, ok := domain.BoundsOf(pts); ok {
		o.surface.FitBounds(b.Pad(FitPadding))
	}
}

func (o *RoutingOrchestrator) invalidateRoutesLocked() {
	if len(o.ranking.Routes()) == 0 && !o.markers.HasRouteLine() {
		return
	}
	o.ranking.Reset()
	o.markers.ClearRouteLine()
	if o.status.Kind == domain.MessageSafe || o.status.Kind == domain.MessageWarning || o.status.Kind == domain.MessageDanger {
		o.status = domain.StatusMessage{}
	}
}

func applyPace(r *domain.RankedRoute, p domain.UserPreferences) {
	if !p.AccountForPace {
		r.PaceDurationText = ""
		return
	}
	r.PaceDurationText = domain.FormatDuration(domain.PaceDuration(r.DistanceMeters, p.Pace))
}

func directionsStatus(err error) string {
	var de *domain.DirectionsError
	if errors.As(err, &de) && de.Status != "" {
		return de.Status
	}
	return domain.DirectionsUnavailable
}

func (o *RoutingOrchestrator) beginLocating() func() {
	o.mu.Lock()
	o.locating++
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		o.locating--
		o.mu.Unlock()
	}
}

// Snapshot returns the session state shown by the shell.
func (o *RoutingOrchestrator) Snapshot() SessionState {
	ds := o.dataset.Snapshot()
	pin := o.pins.State()

	o.mu.Lock()
	defer o.mu.Unlock()

	_, selected, ok := o.ranking.Selected()
	if !ok {
		selected = -1
	}

	return SessionState{
		Preferences:    o.prefs,
		Start:          o.places[domain.MarkerStart],
		End:            o.places[domain.MarkerEnd],
		PinDrop:        pin,
		Markers:        o.markers.Markers(),
		Routes:         o.ranking.Routes(),
		SelectedIndex:  selected,
		Status:         o.status,
		Loading:        LoadingFlags{Locating: o.locating > 0, LoadingData: ds.Loading, Routing: o.routing},
		Datasets:       append([]string(nil), o.datasets...),
		DatasetID:      ds.ID,
		DatasetSummary: ds.Summary,
		UsingFallback:  ds.Fallback,
	}
}

// Destroy tears down every layer of the map instance. The session must
// not be used afterwards.
func (o *RoutingOrchestrator) Destroy() {
	o.mu.Lock()
	if o.destroyed {
		o.mu.Unlock()
		return
	}
	o.destroyed = true
	o.routeToken++
	o.mu.Unlock()

	o.resolver.Close()
	o.pins.Cancel()
	o.markers.Destroy()
	o.renderMu.Lock()
	o.visualizer.Clear()
	o.renderMu.Unlock()
	o.surface.Destroy()
}
