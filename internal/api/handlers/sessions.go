package handlers

import (
	"context"
	"net/http"
	"safe-route-service/internal/api/dto"
	"safe-route-service/internal/domain"
	"safe-route-service/internal/services"

	"github.com/go-chi/chi/v5"
)

type ctxKey struct{}

// SessionHandler exposes one routing session per map instance.
type SessionHandler struct {
	Store *services.SessionStore
}

// Load resolves {id} to a live session, answering 404 otherwise.
func (h *SessionHandler) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := h.Store.Get(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, r, http.StatusNotFound, "session not found")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *services.Session {
	sess, _ := r.Context().Value(ctxKey{}).(*services.Session)
	return sess
}

func (h *SessionHandler) writeState(w http.ResponseWriter, r *http.Request, sess *services.Session) {
	state := sess.Routing.Snapshot()
	state.ID = sess.ID
	writeJSON(w, r, http.StatusOK, state)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sess := h.Store.Create(r.Context())
	writeJSON(w, r, http.StatusCreated, dto.CreateSessionResponse{ID: sess.ID})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, r, sessionFrom(r))
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.Store.Destroy(sessionFrom(r).ID) {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) Map(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, r, http.StatusOK, dto.MapResponse{
		Viewport: sess.Map.Viewport(),
		Layers:   sess.Map.FeatureCollection(),
	})
}

// Preferences

func (h *SessionHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, sessionFrom(r).Routing.Preferences())
}

func (h *SessionHandler) PutPreferences(w http.ResponseWriter, r *http.Request) {
	var req domain.UserPreferences
	if !decodeJSON(w, r, &req) {
		return
	}

	sess := sessionFrom(r)
	if err := sess.Routing.UpdatePreferences(req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, sess.Routing.Preferences())
}

// Endpoints

func markerKind(w http.ResponseWriter, r *http.Request) (domain.MarkerType, bool) {
	kind, err := domain.ParseMarkerType(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, err.Error())
		return "", false
	}
	return kind, true
}

func coordinate(w http.ResponseWriter, r *http.Request) (domain.Coordinate, bool) {
	var req dto.CoordinateRequest
	if !decodeJSON(w, r, &req) {
		return domain.Coordinate{}, false
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "lat and lng are required")
		return domain.Coordinate{}, false
	}
	return domain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}, true
}

// PutPlace records typed endpoint text. With commit set the text is
// resolved before responding.
func (h *SessionHandler) PutPlace(w http.ResponseWriter, r *http.Request) {
	kind, ok := markerKind(w, r)
	if !ok {
		return
	}
	var req dto.PlaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sess := sessionFrom(r)
	resolved := false
	if req.Commit {
		resolved = sess.Routing.CommitPlace(r.Context(), kind, req.Text)
	} else {
		sess.Routing.TypePlace(kind, req.Text)
	}

	writeJSON(w, r, http.StatusOK, dto.PlaceResponse{
		Resolved: resolved,
		Place:    sess.Routing.Place(kind),
	})
}

func (h *SessionHandler) RequestPin(w http.ResponseWriter, r *http.Request) {
	kind, ok := markerKind(w, r)
	if !ok {
		return
	}
	sess := sessionFrom(r)
	sess.Routing.RequestPinDrop(kind)
	h.writeState(w, r, sess)
}

func (h *SessionHandler) CancelPin(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Routing.CancelPinDrop()
	h.writeState(w, r, sess)
}

func (h *SessionHandler) Click(w http.ResponseWriter, r *http.Request) {
	c, ok := coordinate(w, r)
	if !ok {
		return
	}

	placed, err := sessionFrom(r).Routing.HandleMapClick(r.Context(), c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ClickResponse{Placed: placed})
}

// Markers

func (h *SessionHandler) DragMarker(w http.ResponseWriter, r *http.Request) {
	kind, ok := markerKind(w, r)
	if !ok {
		return
	}
	c, ok := coordinate(w, r)
	if !ok {
		return
	}

	m, err := sessionFrom(r).Routing.DragMarker(r.Context(), kind, c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, m)
}

func (h *SessionHandler) ClearMarkers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Routing.ClearMarkers()
	h.writeState(w, r, sess)
}

// Crime datasets

func (h *SessionHandler) Datasets(w http.ResponseWriter, r *http.Request) {
	ids, err := sessionFrom(r).Routing.Datasets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, r, http.StatusOK, dto.DatasetsResponse{Datasets: ids})
}

func (h *SessionHandler) SelectDataset(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectDatasetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := sessionFrom(r).Routing.SelectDataset(r.Context(), req.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.DatasetResponse{
		ID:       snap.ID,
		Summary:  snap.Summary,
		Fallback: snap.Fallback,
	})
}

func (h *SessionHandler) FitData(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	sess.Routing.FitToData()
	writeJSON(w, r, http.StatusOK, sess.Map.Viewport())
}

// Routing

// FindRoutes answers with the session state; a directions failure is a
// danger status in that state, not an HTTP error.
func (h *SessionHandler) FindRoutes(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := sess.Routing.FindRoutes(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.writeState(w, r, sess)
}

func (h *SessionHandler) SelectRoute(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectRouteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Index == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "index is required")
		return
	}

	route, err := sessionFrom(r).Routing.SelectRoute(*req.Index)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}
