package main

import (
	"context"
	"database/sql"
	"safe-route-service/internal/adapters/cache"
	"safe-route-service/internal/adapters/crimedata"
	"safe-route-service/internal/adapters/directions"
	"safe-route-service/internal/adapters/geocoding"
	"safe-route-service/internal/adapters/mapview"
	"safe-route-service/internal/adapters/repositories"
	"safe-route-service/internal/adapters/scoring"
	"safe-route-service/internal/config"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/platform/db"
	"safe-route-service/internal/platform/httpx"
	"safe-route-service/internal/ports"
	"safe-route-service/internal/services"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// openStore connects to the configured database and ensures the schema.
func openStore(ctx context.Context, c *config.Config) (*sql.DB, error) {
	conn, err := db.Open(c.Store.Driver, c.Store.DSN())
	if err != nil {
		return nil, err
	}
	if err := repositories.InitSchema(ctx, conn, c.Store.Driver); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func newCrimeProvider(c *config.Config, conn *sql.DB) ports.CrimeDatasetProvider {
	if c.Crime.Provider == "http" {
		return crimedata.NewHTTPProvider(c.Crime.BaseURL)
	}
	return repositories.NewSQLCrimeRepository(conn, c.Store.Driver)
}

func newGeocodeCache(c *config.Config, conn *sql.DB) ports.GeocodeCache {
	if c.Store.Driver == db.DriverPostgres {
		return cache.NewSQLGeocodeCache(conn)
	}
	return cache.NewSqliteGeocodeCache(conn)
}

func newGeocoder(c *config.Config, conn *sql.DB, log *zap.Logger) (ports.Geocoder, error) {
	var g ports.Geocoder
	switch c.Geocode.Provider {
	case "ors":
		ors, err := geocoding.NewORSGeocoder(c.ORS.APIKey, c.ORS.BaseURL, httpx.WithRateLimit(c.Geocode.RatePerSecond))
		if err != nil {
			return nil, err
		}
		g = ors
	default:
		g = geocoding.NewNominatimGeocoder(c.Geocode.NominatimURL, c.Geocode.UserAgent, c.Geocode.RatePerSecond)
	}

	if c.Geocode.CacheEnabled && conn != nil {
		g = geocoding.NewCachedGeocoder(g, newGeocodeCache(c, conn), log)
	}
	return g, nil
}

// newDirections uses ORS when a key is configured and straight-line
// routes otherwise.
func newDirections(c *config.Config, log *zap.Logger) (ports.DirectionsProvider, error) {
	if strings.TrimSpace(c.ORS.APIKey) == "" {
		log.Warn("ors.api_key not set, using straight-line directions")
		return directions.NewMockDirectionsProvider(), nil
	}
	return directions.NewORSDirectionsProvider(c.ORS.APIKey, c.ORS.BaseURL, c.ORS.Profile)
}

func newScorer(c *config.Config, rc *redis.Client, log *zap.Logger) ports.SafetyScorer {
	var s ports.SafetyScorer = scoring.NewHTTPScorer(
		c.Scoring.BaseURL,
		httpx.WithTimeout(time.Duration(c.Scoring.TimeoutSecs)*time.Second),
	)
	if rc != nil {
		s = scoring.NewCachedScorer(s, rc, time.Duration(c.Scoring.CacheTTLMinutes)*time.Minute, log)
	}
	return s
}

func resolverConfig(c *config.Config) (services.ResolverConfig, error) {
	rc := services.ResolverConfig{
		RegionHint: c.Geocode.RegionHint,
		Debounce:   time.Duration(c.Geocode.DebounceMillis) * time.Millisecond,
	}
	if c.Geocode.Country != "" {
		rc.CountryCodes = strings.Split(c.Geocode.Country, ",")
	}
	if c.Geocode.ViewBox != "" {
		box, err := domain.ParseViewBox(c.Geocode.ViewBox)
		if err != nil {
			return services.ResolverConfig{}, eris.Wrap(err, "config: geocode.viewbox")
		}
		rc.ViewBox = &box
	}
	return rc, nil
}

// sessionFactory builds one orchestrator and map surface per session.
// Collaborators are shared; all of them are safe for concurrent use.
func sessionFactory(deps services.Deps, opts services.Options) services.SessionFactory {
	return func() (*services.RoutingOrchestrator, ports.MapView) {
		surface := mapview.NewSurface(mapview.DefaultCenter, mapview.DefaultZoom)
		d := deps
		d.Surface = surface
		return services.NewRoutingOrchestrator(d, opts), surface
	}
}
