package services

import (
	"context"
	"safe-route-service/internal/adapters/directions"
	"safe-route-service/internal/adapters/mapview"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	startPlace = ports.GeocodeResult{Coordinate: domain.Coordinate{Lat: 41.2230, Lng: -111.9738}, DisplayName: "Ogden Union Station"}
	endPlace   = ports.GeocodeResult{Coordinate: domain.Coordinate{Lat: 41.1924, Lng: -111.9416}, DisplayName: "Weber State University"}
)

type harness struct {
	o       *RoutingOrchestrator
	surface *mapview.Surface
	geo     *fakeGeocoder
	dirs    *directions.MockDirectionsProvider
	scorer  *fakeScorer
	crime   *fakeCrimeProvider
	clk     *clock.Mock
}

func newHarness(t *testing.T, dirs *directions.MockDirectionsProvider) *harness {
	t.Helper()
	clk := clock.NewMock()
	h := buildHarness(t, dirs, clk, time.Second)
	h.clk = clk
	return h
}

// newRealtimeHarness debounces on the wall clock so a fired lookup can
// stay in flight while the test keeps editing.
func newRealtimeHarness(t *testing.T) *harness {
	t.Helper()
	return buildHarness(t, threeRoutes(), clock.New(), 10*time.Millisecond)
}

func buildHarness(t *testing.T, dirs *directions.MockDirectionsProvider, clk clock.Clock, debounce time.Duration) *harness {
	t.Helper()

	h := &harness{
		surface: newSurface(),
		geo:     newFakeGeocoder(),
		dirs:    dirs,
		scorer:  newFakeScorer(),
		crime:   newFakeCrimeProvider(),
	}
	h.geo.forward["Union Station Utah"] = []ports.GeocodeResult{startPlace}
	h.geo.forward["Weber State Utah"] = []ports.GeocodeResult{endPlace}

	h.o = NewRoutingOrchestrator(Deps{
		Geocoder:   h.geo,
		Directions: dirs,
		Scorer:     h.scorer,
		Crime:      h.crime,
		Surface:    h.surface,
	}, Options{
		Resolver: ResolverConfig{RegionHint: DefaultRegionHint, Debounce: debounce, Clock: clk},
	})
	t.Cleanup(h.o.Destroy)
	return h
}

func (h *harness) waitForwardCalls(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.geo.ForwardCalls()) == n }, 2*time.Second, time.Millisecond)
}

func (h *harness) waitForwardIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return h.geo.Inflight() == 0 }, 2*time.Second, time.Millisecond)
}

// threeRoutes has first-point latitudes 41.1, 41.2 and 41.3 so the fake
// scorer can tell them apart.
func threeRoutes() *directions.MockDirectionsProvider {
	route := func(lat, meters float64) directions.MockRoute {
		return directions.MockRoute{
			Path:    []domain.Coordinate{{Lat: lat, Lng: -111.95}, {Lat: lat + 0.02, Lng: -111.96}},
			Meters:  meters,
			Seconds: meters / 1.4,
		}
	}
	return directions.NewMockDirectionsProvider(
		route(41.1, 3218.688),
		route(41.2, 4023.36),
		route(41.3, 2414.016),
	)
}

func (h *harness) resolveBoth(t *testing.T) {
	t.Helper()
	require.True(t, h.o.CommitPlace(context.Background(), domain.MarkerStart, "Union Station"))
	require.True(t, h.o.CommitPlace(context.Background(), domain.MarkerEnd, "Weber State"))
}

func TestFindRoutesRequiresBothEndpoints(t *testing.T) {
	h := newHarness(t, threeRoutes())
	require.True(t, h.o.CommitPlace(context.Background(), domain.MarkerStart, "Union Station"))

	err := h.o.FindRoutes(context.Background())

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Please enter both starting location and destination.", ve.Message)
	assert.Empty(t, h.dirs.Requests(), "no network call before validation passes")
	assert.Zero(t, h.scorer.Calls())

	st := h.o.Snapshot()
	assert.Equal(t, domain.MessageWarning, st.Status.Kind)
	assert.Empty(t, st.Routes)
}

func TestFindRoutesRanksAndRendersSafest(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.scorer.byLat[41.1] = scored(55, domain.CategoryWarning)
	h.scorer.byLat[41.2] = scored(90, domain.CategorySafe)
	h.scorer.byLat[41.3] = scored(55, domain.CategoryWarning)
	h.resolveBoth(t)

	require.NoError(t, h.o.FindRoutes(context.Background()))

	reqs := h.dirs.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, ports.TravelWalking, reqs[0].Mode)
	assert.True(t, reqs[0].AvoidHighways)
	assert.True(t, reqs[0].Alternatives)
	assert.Equal(t, startPlace.Coordinate, reqs[0].Origin)
	assert.Equal(t, endPlace.Coordinate, reqs[0].Destination)

	st := h.o.Snapshot()
	assert.Equal(t, []int{1, 0, 2}, indexes(st.Routes))
	assert.Equal(t, []float64{90, 55, 55}, scores(st.Routes))
	assert.Equal(t, 0, st.SelectedIndex)
	assert.False(t, st.Loading.Routing)
	assert.Equal(t, domain.MessageSafe, st.Status.Kind)
	assert.Equal(t,
		"This route appears to be safe (Safety Score: 90/100). Distance: 2.5 mi, Duration: 48 mins",
		st.Status.Text)

	lines := h.surface.LayersOf(domain.LayerRoute)
	require.Len(t, lines, 1)
	assert.Equal(t, "#10b981", lines[0].Features[0].Style.Color)
	assert.Equal(t, 41.2, lines[0].Features[0].Points[0].Lat)

	vp := h.surface.Viewport()
	require.NotNil(t, vp.Bounds)
	assert.True(t, vp.Bounds.Contains(startPlace.Coordinate))
	assert.True(t, vp.Bounds.Contains(endPlace.Coordinate))
	assert.True(t, vp.Bounds.Contains(domain.Coordinate{Lat: 41.22, Lng: -111.96}))
}

func TestFindRoutesScoringFailureUsesFallback(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.scorer.byLat[41.1] = scored(20, domain.CategoryDanger)
	h.scorer.failAt[41.2] = true
	h.scorer.byLat[41.3] = scored(60, domain.CategoryWarning)
	h.resolveBoth(t)

	require.NoError(t, h.o.FindRoutes(context.Background()))

	st := h.o.Snapshot()
	require.Len(t, st.Routes, 3)
	assert.Equal(t, 3, h.scorer.Calls())
	assert.Equal(t, 1, st.Routes[0].Index)
	assert.Equal(t, 75.0, st.Routes[0].Score)
	assert.Equal(t, domain.CategoryWarning, st.Routes[0].Category)
	assert.Zero(t, st.Routes[0].AffectingIncidentCount)
	assert.Equal(t, domain.MessageWarning, st.Status.Kind)
	assert.Contains(t, st.Status.Text, "Stay alert.")
}

func TestFindRoutesDirectionsFailure(t *testing.T) {
	h := newHarness(t, directions.NewFailingDirectionsProvider(domain.DirectionsZeroResults))
	h.resolveBoth(t)

	require.NoError(t, h.o.FindRoutes(context.Background()))

	st := h.o.Snapshot()
	assert.Empty(t, st.Routes)
	assert.Equal(t, -1, st.SelectedIndex)
	assert.Equal(t, domain.StatusMessage{Kind: domain.MessageDanger, Text: "Could not find a route: ZERO_RESULTS"}, st.Status)
	assert.False(t, st.Loading.Routing)
	assert.Empty(t, h.surface.LayersOf(domain.LayerRoute))
	assert.Zero(t, h.scorer.Calls())
}

func TestNewerRouteRequestSupersedesOlder(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.scorer.byLat[41.1] = scored(30, domain.CategoryDanger)
	h.scorer.byLat[41.2] = scored(30, domain.CategoryDanger)
	h.scorer.byLat[41.3] = scored(30, domain.CategoryDanger)
	h.scorer.hold = make(chan struct{})
	h.scorer.entered = make(chan struct{})
	h.resolveBoth(t)

	done := make(chan error, 1)
	go func() { done <- h.o.FindRoutes(context.Background()) }()
	<-h.scorer.entered

	h.scorer.mu.Lock()
	h.scorer.byLat[41.3] = scored(95, domain.CategorySafe)
	h.scorer.mu.Unlock()
	require.NoError(t, h.o.FindRoutes(context.Background()))

	close(h.scorer.hold)
	require.NoError(t, <-done)

	st := h.o.Snapshot()
	require.Len(t, st.Routes, 3)
	assert.Equal(t, []float64{95, 30, 30}, scores(st.Routes))
	assert.Equal(t, domain.MessageSafe, st.Status.Kind)
	assert.Len(t, h.surface.LayersOf(domain.LayerRoute), 1)
}

func TestFindRoutesCanceledDuringScoringRanksNothing(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.resolveBoth(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.scorer.onAssess = cancel

	err := h.o.FindRoutes(ctx)
	require.ErrorIs(t, err, context.Canceled)

	st := h.o.Snapshot()
	assert.Empty(t, st.Routes)
	assert.Equal(t, -1, st.SelectedIndex)
	assert.False(t, st.Loading.Routing)
	assert.Equal(t, domain.StatusMessage{}, st.Status)
	assert.Empty(t, h.surface.LayersOf(domain.LayerRoute))
}

func TestSelectRouteSwitchesLineWithoutReranking(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.scorer.byLat[41.1] = scored(35, domain.CategoryDanger)
	h.scorer.byLat[41.2] = scored(90, domain.CategorySafe)
	h.scorer.byLat[41.3] = scored(50, domain.CategoryWarning)
	h.resolveBoth(t)
	require.NoError(t, h.o.FindRoutes(context.Background()))

	r, err := h.o.SelectRoute(2)
	require.NoError(t, err)
	assert.Equal(t, 35.0, r.Score)

	st := h.o.Snapshot()
	assert.Equal(t, 2, st.SelectedIndex)
	assert.Equal(t, []float64{90, 50, 35}, scores(st.Routes))
	assert.Equal(t, domain.MessageDanger, st.Status.Kind)
	assert.Contains(t, st.Status.Text, "Consider traveling during daylight hours or with companions.")

	lines := h.surface.LayersOf(domain.LayerRoute)
	require.Len(t, lines, 1)
	assert.Equal(t, "#ef4444", lines[0].Features[0].Style.Color)

	_, err = h.o.SelectRoute(5)
	assert.Error(t, err)
	assert.Len(t, h.dirs.Requests(), 1)
}

func TestPacePreferenceRewritesDurations(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.scorer.byLat[41.1] = scored(80, domain.CategorySafe)
	h.scorer.byLat[41.2] = scored(70, domain.CategorySafe)
	h.scorer.byLat[41.3] = scored(60, domain.CategoryWarning)
	h.resolveBoth(t)
	require.NoError(t, h.o.FindRoutes(context.Background()))

	p := h.o.Preferences()
	p.AccountForPace = true
	p.Pace = 10
	require.NoError(t, h.o.UpdatePreferences(p))

	st := h.o.Snapshot()
	assert.Equal(t, "20 mins", st.Routes[0].PaceDurationText)
	assert.Contains(t, st.Status.Text, "Duration: 20 mins")

	p.Pace = 2
	var ve *domain.ValidationError
	assert.ErrorAs(t, h.o.UpdatePreferences(p), &ve)
}

func TestPinDropReverseFailureUsesCoordinateLabel(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.geo.reverseErr = errLookup

	h.o.RequestPinDrop(domain.MarkerEnd)
	assert.Equal(t, domain.PinDropAwaitingEnd, h.o.PinDropState())

	placed, err := h.o.HandleMapClick(context.Background(), domain.Coordinate{Lat: 41.2, Lng: -111.9})
	require.NoError(t, err)
	require.True(t, placed)

	st := h.o.Snapshot()
	assert.Equal(t, domain.PinDropIdle, st.PinDrop)
	require.Len(t, st.Markers, 1)
	assert.Equal(t, domain.MarkerEnd, st.Markers[0].Type)
	assert.Equal(t, "41.2000, -111.9000", st.Markers[0].Label)
	assert.Equal(t, "41.2000, -111.9000", st.End.Text)
	require.NotNil(t, st.End.Coordinate)
	assert.Equal(t, domain.Coordinate{Lat: 41.2, Lng: -111.9}, *st.End.Coordinate)
	assert.Equal(t, mapview.DefaultZoom, h.surface.Viewport().Zoom)
}

func TestPlacingStartTwiceLeavesOneMarker(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.geo.reverseName = "Somewhere"

	for _, c := range []domain.Coordinate{{Lat: 41.21, Lng: -111.95}, {Lat: 41.23, Lng: -111.97}} {
		h.o.RequestPinDrop(domain.MarkerStart)
		placed, err := h.o.HandleMapClick(context.Background(), c)
		require.NoError(t, err)
		require.True(t, placed)
	}

	layers := h.surface.LayersOf(domain.LayerMarker)
	require.Len(t, layers, 1)
	assert.Equal(t, domain.Coordinate{Lat: 41.23, Lng: -111.97}, layers[0].Features[0].Points[0])
}

func TestMapClickWhileIdleIsIgnored(t *testing.T) {
	h := newHarness(t, threeRoutes())

	placed, err := h.o.HandleMapClick(context.Background(), domain.Coordinate{Lat: 41.2, Lng: -111.9})
	require.NoError(t, err)
	assert.False(t, placed)
	assert.Zero(t, h.geo.ReverseCalls())

	_, err = h.o.HandleMapClick(context.Background(), domain.Coordinate{Lat: 95, Lng: 0})
	assert.Error(t, err)
}

func TestStalePinDropResultIsDiscarded(t *testing.T) {
	h := newHarness(t, threeRoutes())
	gate := make(chan struct{})
	h.geo.reverseGate = gate
	h.geo.reverseName = "Old target"

	h.o.RequestPinDrop(domain.MarkerStart)
	done := make(chan bool)
	go func() {
		placed, _ := h.o.HandleMapClick(context.Background(), domain.Coordinate{Lat: 41.2, Lng: -111.9})
		done <- placed
	}()

	require.Eventually(t, func() bool { return h.geo.ReverseCalls() == 1 }, time.Second, time.Millisecond)
	h.o.RequestPinDrop(domain.MarkerEnd)
	close(gate)

	assert.False(t, <-done)
	st := h.o.Snapshot()
	assert.Empty(t, st.Markers)
	assert.Equal(t, domain.PinDropAwaitingEnd, st.PinDrop)
}

func TestDragMarkerUpdatesPlace(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.resolveBoth(t)
	before, _ := h.o.markers.Marker(domain.MarkerEnd)
	h.geo.reverseName = "25th Street"

	to := domain.Coordinate{Lat: 41.22, Lng: -111.97}
	m, err := h.o.DragMarker(context.Background(), domain.MarkerEnd, to)
	require.NoError(t, err)

	assert.Equal(t, before.ID, m.ID)
	assert.Equal(t, "25th Street", m.Label)
	end := h.o.Place(domain.MarkerEnd)
	assert.Equal(t, "25th Street", end.Text)
	assert.Equal(t, to, *end.Coordinate)

	h.o.ClearMarkers()
	_, err = h.o.DragMarker(context.Background(), domain.MarkerEnd, to)
	assert.Error(t, err)
}

func TestTypedPlaceResolvesAfterQuietPeriod(t *testing.T) {
	h := newHarness(t, threeRoutes())

	h.o.TypePlace(domain.MarkerStart, "Union")
	h.clk.Add(200 * time.Millisecond)
	h.o.TypePlace(domain.MarkerStart, "Union Station")
	assert.Empty(t, h.o.Snapshot().Markers)

	h.clk.Add(time.Second)

	calls := h.geo.ForwardCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Union Station Utah", calls[0].Query)

	st := h.o.Snapshot()
	require.Len(t, st.Markers, 1)
	assert.Equal(t, "Union Station", st.Start.Text)
	assert.Equal(t, "Ogden Union Station", st.Start.Label)
	vp := h.surface.Viewport()
	assert.Equal(t, startPlace.Coordinate, vp.Center)
	assert.Equal(t, EndpointZoom, vp.Zoom)
}

var cityHall = ports.GeocodeResult{Coordinate: domain.Coordinate{Lat: 41.2181, Lng: -111.9700}, DisplayName: "Ogden City Hall"}

func TestLateForwardResultAfterClearIsDiscarded(t *testing.T) {
	h := newRealtimeHarness(t)
	gate := make(chan struct{})
	h.geo.forwardGate["Union Station Utah"] = gate

	h.o.TypePlace(domain.MarkerStart, "Union Station")
	h.waitForwardCalls(t, 1)

	h.o.ClearMarkers()
	close(gate)
	h.waitForwardIdle(t)

	st := h.o.Snapshot()
	assert.Empty(t, st.Markers)
	assert.Equal(t, domain.PlaceQuery{}, st.Start)
	assert.Empty(t, h.surface.LayersOf(domain.LayerMarker))
}

func TestNewerTypedLookupSupersedesRunningOne(t *testing.T) {
	h := newRealtimeHarness(t)
	h.geo.forward["Ogden Utah"] = []ports.GeocodeResult{startPlace}
	h.geo.forward["Ogden City Utah"] = []ports.GeocodeResult{cityHall}
	gate := make(chan struct{})
	h.geo.forwardGate["Ogden Utah"] = gate

	h.o.TypePlace(domain.MarkerStart, "Ogden")
	h.waitForwardCalls(t, 1)

	h.o.TypePlace(domain.MarkerStart, "Ogden City")
	h.waitForwardCalls(t, 2)
	require.Eventually(t, func() bool {
		return h.o.Place(domain.MarkerStart).Label == "Ogden City Hall"
	}, 2*time.Second, time.Millisecond)

	close(gate)
	h.waitForwardIdle(t)

	assert.Equal(t, 1, h.geo.MaxInflight(), "one forward call per field at a time")
	st := h.o.Snapshot()
	assert.Equal(t, "Ogden City", st.Start.Text)
	assert.Equal(t, "Ogden City Hall", st.Start.Label)
	require.Len(t, st.Markers, 1)
	assert.Equal(t, cityHall.Coordinate, st.Markers[0].Coordinate)
}

func TestCommitWinsOverRunningTypedLookup(t *testing.T) {
	h := newRealtimeHarness(t)
	h.geo.forward["Union Utah"] = []ports.GeocodeResult{cityHall}
	gate := make(chan struct{})
	h.geo.forwardGate["Union Utah"] = gate
	defer close(gate)

	h.o.TypePlace(domain.MarkerStart, "Union")
	h.waitForwardCalls(t, 1)

	require.True(t, h.o.CommitPlace(context.Background(), domain.MarkerStart, "Union Station"))
	h.waitForwardIdle(t)

	st := h.o.Snapshot()
	assert.Equal(t, "Ogden Union Station", st.Start.Label)
	assert.Equal(t, 1, h.geo.MaxInflight())
}

func TestPinDropWinsOverRunningTypedLookup(t *testing.T) {
	h := newRealtimeHarness(t)
	h.geo.reverseName = "Pinned corner"
	gate := make(chan struct{})
	h.geo.forwardGate["Union Station Utah"] = gate

	h.o.TypePlace(domain.MarkerStart, "Union Station")
	h.waitForwardCalls(t, 1)

	h.o.RequestPinDrop(domain.MarkerStart)
	at := domain.Coordinate{Lat: 41.21, Lng: -111.95}
	placed, err := h.o.HandleMapClick(context.Background(), at)
	require.NoError(t, err)
	require.True(t, placed)

	// The running lookup is not aborted; its result must still lose.
	close(gate)
	h.waitForwardIdle(t)

	st := h.o.Snapshot()
	assert.Equal(t, "Pinned corner", st.Start.Label)
	require.Len(t, st.Markers, 1)
	assert.Equal(t, at, st.Markers[0].Coordinate)
}

func TestClearMarkersResetsEndpoints(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.scorer.byLat[41.1] = scored(80, domain.CategorySafe)
	h.scorer.byLat[41.2] = scored(70, domain.CategorySafe)
	h.scorer.byLat[41.3] = scored(60, domain.CategoryWarning)
	h.resolveBoth(t)
	require.NoError(t, h.o.FindRoutes(context.Background()))

	h.o.ClearMarkers()

	st := h.o.Snapshot()
	assert.Empty(t, st.Markers)
	assert.Empty(t, st.Routes)
	assert.Equal(t, domain.PlaceQuery{}, st.Start)
	assert.Equal(t, domain.PlaceQuery{}, st.End)
	assert.Empty(t, h.surface.LayersOf(domain.LayerMarker))
	assert.Empty(t, h.surface.LayersOf(domain.LayerRoute))
}

func TestInitLoadsDefaultDatasetAndModeSwitch(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.crime.ids = []string{"other.csv", DefaultDatasetID}
	h.crime.data[DefaultDatasetID] = weighted

	h.o.Init(context.Background())

	st := h.o.Snapshot()
	assert.Equal(t, DefaultDatasetID, st.DatasetID)
	assert.Equal(t, []string{"other.csv", DefaultDatasetID}, st.Datasets)
	assert.Equal(t, 3, st.DatasetSummary.Count)
	assert.Empty(t, h.surface.LayersOf(domain.LayerCrime), "plain map mode draws nothing")

	p := h.o.Preferences()
	p.DisplayMode = domain.DisplayHeatmap
	require.NoError(t, h.o.UpdatePreferences(p))
	assert.Len(t, h.surface.LayersOf(domain.LayerCrime), 1)

	p.DisplayMode = domain.DisplayPoints
	require.NoError(t, h.o.UpdatePreferences(p))
	layers := h.surface.LayersOf(domain.LayerCrime)
	require.Len(t, layers, 1)
	assert.Equal(t, "points", layers[0].Name)

	assert.True(t, h.o.FitToData())
}

func TestInitFallsBackWhenListingFails(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.crime.listErr = errLookup

	h.o.Init(context.Background())

	st := h.o.Snapshot()
	assert.True(t, st.UsingFallback)
	assert.Equal(t, 3, st.DatasetSummary.Count)
	assert.InDelta(t, 320, st.DatasetSummary.WeightMax, 1e-9)
}

func TestSelectDatasetValidation(t *testing.T) {
	h := newHarness(t, threeRoutes())
	_, err := h.o.SelectDataset(context.Background(), "")
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDestroyTearsDownLayers(t *testing.T) {
	h := newHarness(t, threeRoutes())
	h.crime.ids = []string{DefaultDatasetID}
	h.crime.data[DefaultDatasetID] = weighted
	h.o.Init(context.Background())
	p := h.o.Preferences()
	p.DisplayMode = domain.DisplayHeatmap
	require.NoError(t, h.o.UpdatePreferences(p))
	h.resolveBoth(t)
	require.Equal(t, 3, h.surface.LayerCount())

	h.o.Destroy()

	assert.True(t, h.surface.Destroyed())
	assert.Zero(t, h.surface.LayerCount())
}
