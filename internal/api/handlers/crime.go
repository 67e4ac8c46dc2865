package handlers

import (
	"errors"
	"net/http"
	"safe-route-service/internal/api/dto"
	"safe-route-service/internal/ports"
	"strings"

	"github.com/go-chi/chi/v5"
)

// CrimeHandler serves the crime data service API from any dataset provider.
type CrimeHandler struct {
	Provider ports.CrimeDatasetProvider
}

func (h *CrimeHandler) Files(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Provider.ListDatasets(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, r, http.StatusOK, dto.CrimeFilesResponse{AvailableFiles: ids})
}

func (h *CrimeHandler) Data(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("filename"))
	if name == "" {
		writeError(w, r, http.StatusBadRequest, "filename is required")
		return
	}

	data, err := h.Provider.LoadDataset(r.Context(), name)
	if errors.Is(err, ports.ErrDatasetNotFound) {
		writeError(w, r, http.StatusNotFound, "crime file not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.CrimeDataResponse{CrimeData: data})
}

func (h *CrimeHandler) Info(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	info, err := h.Provider.DatasetInfo(r.Context(), name)
	if errors.Is(err, ports.ErrDatasetNotFound) {
		writeError(w, r, http.StatusNotFound, "crime file not found")
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.CrimeInfoResponse{
		Filename:    name,
		RecordCount: info.Count,
		WeightStats: dto.WeightStats{Min: info.WeightMin, Max: info.WeightMax},
	})
}
