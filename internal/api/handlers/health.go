package handlers

import (
	"net/http"
)

// HealthResponse reports liveness and the number of open map sessions.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

// Health returns a liveness handler; sessions may be nil.
func Health(sessions func() int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := HealthResponse{Status: "ok"}
		if sessions != nil {
			res.Sessions = sessions()
		}
		writeJSON(w, r, http.StatusOK, res)
	}
}
