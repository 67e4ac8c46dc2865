package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/httpx"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var noRetry = httpx.WithRetry(httpx.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond})

var route = []domain.Coordinate{
	{Lat: 41.2206, Lng: -111.9803},
	{Lat: 41.2, Lng: -111.96},
	{Lat: 41.1915, Lng: -111.9375},
}

func TestHTTPScorerAssess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/check-route", r.URL.Path)

		var body checkRouteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Route, 3)
		assert.Equal(t, routePoint{Lat: 41.2206, Lng: -111.9803}, body.Route[0])

		_, _ = w.Write([]byte(`{"safetyScore":82.5,"safetyCategory":"safe","affectingCrimeCount":4}`))
	}))
	defer srv.Close()

	got, err := NewHTTPScorer(srv.URL, noRetry).Assess(context.Background(), route)
	require.NoError(t, err)
	assert.Equal(t, domain.SafetyAssessment{
		Score:                  82.5,
		Category:               domain.CategorySafe,
		AffectingIncidentCount: 4,
	}, got)
}

func TestHTTPScorerAssess_ShortRoute(t *testing.T) {
	_, err := NewHTTPScorer("http://127.0.0.1:1", noRetry).Assess(context.Background(), route[:1])
	require.Error(t, err)
}

func TestHTTPScorerAssess_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPScorer(srv.URL, noRetry).Assess(context.Background(), route)
	require.Error(t, err)
}
