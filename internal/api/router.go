package api

import (
	"net/http"
	"safe-route-service/internal/api/handlers"
	"safe-route-service/internal/ports"
	"safe-route-service/internal/services"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(store *services.SessionStore, crime ports.CrimeDatasetProvider, cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.L()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	sessions := &handlers.SessionHandler{Store: store}
	crimeHandler := &handlers.CrimeHandler{Provider: crime}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", handlers.Health(store.Len))

	r.Route("/api", func(r chi.Router) {
		r.Get("/crime-files", crimeHandler.Files)
		r.Get("/crime-files/{name}/info", crimeHandler.Info)
		r.Get("/crime-data", crimeHandler.Data)
	})

	r.Post("/sessions", sessions.Create)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Use(sessions.Load)

		r.Get("/", sessions.Get)
		r.Delete("/", sessions.Delete)
		r.Get("/map", sessions.Map)

		r.Get("/preferences", sessions.GetPreferences)
		r.Put("/preferences", sessions.PutPreferences)

		r.Put("/places/{kind}", sessions.PutPlace)
		r.Post("/pins/{kind}", sessions.RequestPin)
		r.Delete("/pins", sessions.CancelPin)
		r.Post("/clicks", sessions.Click)

		r.Put("/markers/{kind}", sessions.DragMarker)
		r.Delete("/markers", sessions.ClearMarkers)

		r.Get("/datasets", sessions.Datasets)
		r.Put("/dataset", sessions.SelectDataset)
		r.Post("/dataset/fit", sessions.FitData)

		r.Post("/routes", sessions.FindRoutes)
		r.Put("/routes/selected", sessions.SelectRoute)
	})

	return r
}
