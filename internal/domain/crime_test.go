package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntensityAndBands(t *testing.T) {
	incidents := []CrimeIncident{
		{Coordinate: Coordinate{Lat: 41.22, Lng: -111.97}, Weight: 100},
		{Coordinate: Coordinate{Lat: 41.21, Lng: -111.96}, Weight: 200},
		{Coordinate: Coordinate{Lat: 41.20, Lng: -111.95}, Weight: 400},
	}

	max := MaxWeight(incidents)
	assert.Equal(t, 400.0, max)

	wantIntensity := []float64{0.25, 0.5, 1.0}
	wantBand := []SeverityBand{BandLow, BandMedium, BandHigh}
	for i, inc := range incidents {
		got := Intensity(inc.Weight, max)
		assert.Equal(t, wantIntensity[i], got, "incident %d", i)
		assert.Equal(t, wantBand[i], BandFor(got), "incident %d", i)
	}
}

func TestIntensityEdges(t *testing.T) {
	assert.Equal(t, 1.0, Intensity(320, 320))
	assert.Equal(t, 0.0, Intensity(0, 320))
	assert.Equal(t, 0.0, Intensity(10, 0))
	assert.Equal(t, 1.0, Intensity(500, 320), "clamped")
}

func TestBandBoundaries(t *testing.T) {
	assert.Equal(t, BandLow, BandFor(0.39))
	assert.Equal(t, BandMedium, BandFor(0.4))
	assert.Equal(t, BandMedium, BandFor(0.7))
	assert.Equal(t, BandHigh, BandFor(0.71))
}

func TestSummarize(t *testing.T) {
	s := Summarize([]CrimeIncident{{Weight: 245}, {Weight: 180}, {Weight: 320}})
	assert.Equal(t, CrimeDatasetSummary{Count: 3, WeightMin: 180, WeightMax: 320}, s)

	assert.Equal(t, CrimeDatasetSummary{}, Summarize(nil))
}

func TestIncidentValid(t *testing.T) {
	assert.True(t, CrimeIncident{Coordinate: Coordinate{Lat: 41.2, Lng: -111.9}, Weight: 1}.Valid())
	assert.False(t, CrimeIncident{Coordinate: Coordinate{Lat: 41.2, Lng: -111.9}, Weight: 0}.Valid())
	assert.False(t, CrimeIncident{Coordinate: Coordinate{Lat: 91, Lng: -111.9}, Weight: 3}.Valid())
}
