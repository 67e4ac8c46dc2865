package geocoding

import (
	"context"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/ports"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// CachedGeocoder serves repeated forward lookups from a persistent cache.
// Only the best-ranked result is cached; a cache hit returns it alone.
// Reverse lookups pass through. Cache failures are logged and ignored.
type CachedGeocoder struct {
	next  ports.Geocoder
	cache ports.GeocodeCache
	log   *zap.Logger
}

func NewCachedGeocoder(next ports.Geocoder, cache ports.GeocodeCache, log *zap.Logger) *CachedGeocoder {
	if log == nil {
		log = zap.L()
	}
	return &CachedGeocoder{next: next, cache: cache, log: log}
}

// normalize ensures consistent cache keys by collapsing whitespace and case.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// cacheKey scopes the normalized query to the search region, so a changed
// viewbox or country filter misses instead of reusing another region's hit.
// An empty query yields an empty key.
func cacheKey(query string, opts ports.ForwardOptions) string {
	key := normalize(query)
	if key == "" {
		return ""
	}
	if opts.ViewBox != nil {
		key += "|viewbox=" + opts.ViewBox.ViewBox()
	}
	if len(opts.CountryCodes) > 0 {
		codes := make([]string, 0, len(opts.CountryCodes))
		for _, c := range opts.CountryCodes {
			if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
				codes = append(codes, c)
			}
		}
		slices.Sort(codes)
		key += "|countries=" + strings.Join(codes, ",")
	}
	return key
}

func (c *CachedGeocoder) Forward(
	ctx context.Context,
	query string,
	opts ports.ForwardOptions,
) ([]ports.GeocodeResult, error) {
	key := cacheKey(query, opts)
	if key != "" {
		hits, err := c.cache.GetMany(ctx, []string{key})
		if err != nil {
			c.log.Warn("geocode cache read failed", zap.String("query", key), zap.Error(err))
		} else if hit, ok := hits[key]; ok {
			return []ports.GeocodeResult{hit}, nil
		}
	}

	results, err := c.next.Forward(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	if key != "" && len(results) > 0 {
		if err := c.cache.PutMany(ctx, map[string]ports.GeocodeResult{key: results[0]}); err != nil {
			c.log.Warn("geocode cache write failed", zap.String("query", key), zap.Error(err))
		}
	}

	return results, nil
}

func (c *CachedGeocoder) Reverse(ctx context.Context, coord domain.Coordinate) (string, error) {
	return c.next.Reverse(ctx, coord)
}
