package dto

import "safe-route-service/internal/domain"

type CrimeFilesResponse struct {
	AvailableFiles []string `json:"available_files"`
}

type CrimeDataResponse struct {
	CrimeData []domain.CrimeIncident `json:"crimeData"`
}

type WeightStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type CrimeInfoResponse struct {
	Filename    string      `json:"filename"`
	RecordCount int         `json:"record_count"`
	WeightStats WeightStats `json:"weight_stats"`
}

type SelectDatasetRequest struct {
	ID string `json:"id"`
}

type DatasetsResponse struct {
	Datasets []string `json:"datasets"`
}

type DatasetResponse struct {
	ID       string                     `json:"id"`
	Summary  domain.CrimeDatasetSummary `json:"summary"`
	Fallback bool                       `json:"fallback"`
}
