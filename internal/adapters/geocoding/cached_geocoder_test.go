package geocoding

import (
	"context"
	"errors"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string]ports.GeocodeResult
	failGet bool
	failPut bool
}

func (m *memCache) GetMany(_ context.Context, keys []string) (map[string]ports.GeocodeResult, error) {
	if m.failGet {
		return nil, errors.New("cache down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]ports.GeocodeResult{}
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memCache) PutMany(_ context.Context, results map[string]ports.GeocodeResult) error {
	if m.failPut {
		return errors.New("cache down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]ports.GeocodeResult{}
	}
	for k, v := range results {
		m.data[k] = v
	}
	return nil
}

type countingGeocoder struct {
	forward int
	reverse int
	results []ports.GeocodeResult
	err     error
}

func (c *countingGeocoder) Forward(context.Context, string, ports.ForwardOptions) ([]ports.GeocodeResult, error) {
	c.forward++
	return c.results, c.err
}

func (c *countingGeocoder) Reverse(context.Context, domain.Coordinate) (string, error) {
	c.reverse++
	return "reversed", nil
}

func TestCachedGeocoder_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	union := ports.GeocodeResult{Coordinate: domain.Coordinate{Lat: 41.22, Lng: -111.98}, DisplayName: "Union Station"}
	next := &countingGeocoder{results: []ports.GeocodeResult{union, {DisplayName: "other"}}}
	cache := &memCache{}
	g := NewCachedGeocoder(next, cache, nil)

	got, err := g.Forward(ctx, "Union  Station Utah", ports.ForwardOptions{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, union, cache.data["union station utah"])

	got, err = g.Forward(ctx, " union station UTAH ", ports.ForwardOptions{})
	require.NoError(t, err)
	assert.Equal(t, []ports.GeocodeResult{union}, got)
	assert.Equal(t, 1, next.forward)
}

func TestCachedGeocoder_KeyIncludesSearchRegion(t *testing.T) {
	ctx := context.Background()
	union := ports.GeocodeResult{Coordinate: domain.Coordinate{Lat: 41.22, Lng: -111.98}, DisplayName: "Union Station"}
	next := &countingGeocoder{results: []ports.GeocodeResult{union}}
	cache := &memCache{}
	g := NewCachedGeocoder(next, cache, nil)

	utah := ports.ForwardOptions{
		ViewBox:      &domain.BoundingBox{West: -112.5, South: 40.5, East: -111, North: 42},
		CountryCodes: []string{"US"},
	}
	_, err := g.Forward(ctx, "Union Station", utah)
	require.NoError(t, err)
	assert.Contains(t, cache.data, "union station|viewbox=-112.5,40.5,-111,42|countries=us")

	_, err = g.Forward(ctx, "union station", utah)
	require.NoError(t, err)
	assert.Equal(t, 1, next.forward, "same region hits the cache")

	denver := ports.ForwardOptions{
		ViewBox:      &domain.BoundingBox{West: -105.2, South: 39.6, East: -104.6, North: 40},
		CountryCodes: []string{"us"},
	}
	_, err = g.Forward(ctx, "Union Station", denver)
	require.NoError(t, err)
	assert.Equal(t, 2, next.forward, "another viewbox misses")

	_, err = g.Forward(ctx, "Union Station", ports.ForwardOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, next.forward, "unscoped lookups are cached separately")
	assert.Len(t, cache.data, 3)
}

func TestCachedGeocoder_CacheFailuresIgnored(t *testing.T) {
	res := ports.GeocodeResult{DisplayName: "x"}
	next := &countingGeocoder{results: []ports.GeocodeResult{res}}
	g := NewCachedGeocoder(next, &memCache{failGet: true, failPut: true}, nil)

	got, err := g.Forward(context.Background(), "x", ports.ForwardOptions{})
	require.NoError(t, err)
	assert.Equal(t, []ports.GeocodeResult{res}, got)
}

func TestCachedGeocoder_ErrorsNotCached(t *testing.T) {
	next := &countingGeocoder{err: ErrNoResults}
	cache := &memCache{}
	g := NewCachedGeocoder(next, cache, nil)

	_, err := g.Forward(context.Background(), "nowhere", ports.ForwardOptions{})
	require.Error(t, err)
	assert.Empty(t, cache.data)
}

func TestCachedGeocoder_ReversePassesThrough(t *testing.T) {
	next := &countingGeocoder{}
	g := NewCachedGeocoder(next, &memCache{}, nil)

	name, err := g.Reverse(context.Background(), domain.Coordinate{})
	require.NoError(t, err)
	assert.Equal(t, "reversed", name)
	assert.Equal(t, 1, next.reverse)
}
