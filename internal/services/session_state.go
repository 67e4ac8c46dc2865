package services

import "safe-route-service/internal/domain"

// Network activity currently in progress for a session.
type LoadingFlags struct {
	Locating    bool `json:"locating"`
	LoadingData bool `json:"loading_data"`
	Routing     bool `json:"routing"`
}

// SessionState is everything the browser shell renders outside the map.
type SessionState struct {
	ID             string                     `json:"id"`
	Preferences    domain.UserPreferences     `json:"preferences"`
	Start          domain.PlaceQuery          `json:"start"`
	End            domain.PlaceQuery          `json:"end"`
	PinDrop        domain.PinDropState        `json:"pin_drop"`
	Markers        []domain.Marker            `json:"markers"`
	Routes         []domain.RankedRoute       `json:"routes"`
	SelectedIndex  int                        `json:"selected_index"`
	Status         domain.StatusMessage       `json:"status"`
	Loading        LoadingFlags               `json:"loading"`
	Datasets       []string                   `json:"datasets"`
	DatasetID      string                     `json:"dataset_id"`
	DatasetSummary domain.CrimeDatasetSummary `json:"dataset_summary"`
	UsingFallback  bool                       `json:"using_fallback"`
}
