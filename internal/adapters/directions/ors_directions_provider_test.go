package directions

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/httpx"
	"safe-route-service/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noRetry = httpx.WithRetry(httpx.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond})

var (
	union = domain.Coordinate{Lat: 41.2206, Lng: -111.9803}
	weber = domain.Coordinate{Lat: 41.1915, Lng: -111.9375}
)

func walkRequest() ports.DirectionsRequest {
	return ports.DirectionsRequest{
		Origin:        union,
		Destination:   weber,
		Mode:          ports.TravelWalking,
		AvoidHighways: true,
		Alternatives:  true,
	}
}

const twoRoutes = `{
	"type": "FeatureCollection",
	"features": [
		{
			"type": "Feature",
			"geometry": {"type": "LineString", "coordinates": [[-111.9803,41.2206],[-111.96,41.2],[-111.9375,41.1915]]},
			"properties": {"summary": {"distance": 4023.36, "duration": 2880}}
		},
		{
			"type": "Feature",
			"geometry": {"type": "Point", "coordinates": [-111.9,41.2]},
			"properties": {}
		},
		{
			"type": "Feature",
			"geometry": {"type": "LineString", "coordinates": [[-111.9803,41.2206],[-111.9375,41.1915]]},
			"properties": {"summary": {"distance": 3218.688, "duration": 2400}}
		}
	]
}`

func TestNewORSDirectionsProvider_RequiresKey(t *testing.T) {
	_, err := NewORSDirectionsProvider("", "", "")
	require.Error(t, err)
}

func TestORSRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/directions/foot-walking/geojson", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("Authorization"))

		var body orsDirectionsRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, [][]float64{{-111.9803, 41.2206}, {-111.9375, 41.1915}}, body.Coordinates)
		if assert.NotNil(t, body.AlternativeRoutes) {
			assert.Equal(t, 3, body.AlternativeRoutes.TargetCount)
			assert.Equal(t, 0.6, body.AlternativeRoutes.ShareFactor)
			assert.Equal(t, 1.4, body.AlternativeRoutes.WeightFactor)
		}

		_, _ = w.Write([]byte(twoRoutes))
	}))
	defer srv.Close()

	p, err := NewORSDirectionsProvider("key", srv.URL, "", noRetry)
	require.NoError(t, err)

	got, err := p.Route(context.Background(), walkRequest())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 1, got[1].Index)
	assert.Len(t, got[0].Polyline, 3)
	assert.Equal(t, union, got[0].Polyline[0])
	assert.Equal(t, "2.5 mi", got[0].DistanceText)
	assert.Equal(t, "48 mins", got[0].DurationText)
	assert.Equal(t, "2.0 mi", got[1].DistanceText)
	assert.Equal(t, "40 mins", got[1].DurationText)
}

func TestORSRoute_NoFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[]}`))
	}))
	defer srv.Close()

	p, err := NewORSDirectionsProvider("key", srv.URL, "", noRetry)
	require.NoError(t, err)

	_, err = p.Route(context.Background(), walkRequest())
	var de *domain.DirectionsError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DirectionsZeroResults, de.Status)
}

func TestORSRoute_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":2009,"message":"Route could not be found"}}`))
	}))
	defer srv.Close()

	p, err := NewORSDirectionsProvider("key", srv.URL, "", noRetry)
	require.NoError(t, err)

	_, err = p.Route(context.Background(), walkRequest())
	var de *domain.DirectionsError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DirectionsNotFound, de.Status)
	assert.Contains(t, de.Error(), "Route could not be found")
}

func TestORSRoute_BadRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":2004,"message":"distance too long"}}`))
	}))
	defer srv.Close()

	p, err := NewORSDirectionsProvider("key", srv.URL, "", noRetry)
	require.NoError(t, err)

	_, err = p.Route(context.Background(), walkRequest())
	var de *domain.DirectionsError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, StatusInvalidRequest, de.Status)
}

func TestORSRoute_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := NewORSDirectionsProvider("key", srv.URL, "", noRetry)
	require.NoError(t, err)

	_, err = p.Route(context.Background(), walkRequest())
	var de *domain.DirectionsError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DirectionsUnavailable, de.Status)
}

func TestORSRoute_InvalidEndpoint(t *testing.T) {
	p, err := NewORSDirectionsProvider("key", "http://127.0.0.1:1", "", noRetry)
	require.NoError(t, err)

	req := walkRequest()
	req.Origin = domain.Coordinate{Lat: 120}
	_, err = p.Route(context.Background(), req)
	var de *domain.DirectionsError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, StatusInvalidRequest, de.Status)
}

func TestMockDirectionsProvider_StraightLine(t *testing.T) {
	p := NewMockDirectionsProvider()
	got, err := p.Route(context.Background(), walkRequest())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []domain.Coordinate{union, weber}, got[0].Polyline)
	assert.InDelta(t, union.DistanceTo(weber), got[0].DistanceMeters, 1e-6)
	assert.Len(t, p.Requests(), 1)
}

func TestMockDirectionsProvider_Failing(t *testing.T) {
	p := NewFailingDirectionsProvider(domain.DirectionsZeroResults)
	_, err := p.Route(context.Background(), walkRequest())
	var de *domain.DirectionsError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, domain.DirectionsZeroResults, de.Status)
}
