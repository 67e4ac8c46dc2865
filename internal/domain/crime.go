package domain

import "math"

// A single weighted crime observation. Immutable once loaded.
type CrimeIncident struct {
	Coordinate
	Weight float64 `json:"weight"`
}

// Valid reports whether the incident may be visualized.
func (i CrimeIncident) Valid() bool {
	return i.Weight > 0 && !math.IsInf(i.Weight, 0) && i.Coordinate.Valid()
}

// Summary statistics of a crime dataset.
type CrimeDatasetSummary struct {
	Count     int     `json:"count"`
	WeightMin float64 `json:"weight_min"`
	WeightMax float64 `json:"weight_max"`
}

// Summarize computes count and weight range of the incidents.
func Summarize(incidents []CrimeIncident) CrimeDatasetSummary {
	s := CrimeDatasetSummary{Count: len(incidents)}
	for i, inc := range incidents {
		if i == 0 || inc.Weight < s.WeightMin {
			s.WeightMin = inc.Weight
		}
		if i == 0 || inc.Weight > s.WeightMax {
			s.WeightMax = inc.Weight
		}
	}
	return s
}

// MaxWeight returns the largest incident weight, or 0 for an empty set.
func MaxWeight(incidents []CrimeIncident) float64 {
	max := 0.0
	for _, inc := range incidents {
		if inc.Weight > max {
			max = inc.Weight
		}
	}
	return max
}

// Intensity normalizes weight against the dataset maximum, clamped to [0,1].
func Intensity(weight, maxWeight float64) float64 {
	if maxWeight <= 0 || weight <= 0 {
		return 0
	}
	v := weight / maxWeight
	if v > 1 {
		return 1
	}
	return v
}

// SeverityBand buckets an intensity value.
type SeverityBand string

const (
	BandLow    SeverityBand = "low"
	BandMedium SeverityBand = "medium"
	BandHigh   SeverityBand = "high"
)

// BandFor maps intensity to a band: low below 0.4, high above 0.7.
func BandFor(intensity float64) SeverityBand {
	switch {
	case intensity > 0.7:
		return BandHigh
	case intensity >= 0.4:
		return BandMedium
	default:
		return BandLow
	}
}
