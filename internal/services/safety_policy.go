package services

import (
	"fmt"
	"math"
	"safe-route-service/internal/domain"
)

// Score thresholds and the assessment given to candidates the scorer
// could not assess. Fixed; not user-configurable.
const (
	SafeScoreThreshold    = 70.0
	WarningScoreThreshold = 40.0
	FallbackScore         = 75.0
)

const (
	colorSafe    = "#10b981"
	colorWarning = "#f59e0b"
	colorDanger  = "#ef4444"
)

// Return the category implied by score.
func CategoryForScore(score float64) domain.SafetyCategory {
	switch {
	case score >= SafeScoreThreshold:
		return domain.CategorySafe
	case score >= WarningScoreThreshold:
		return domain.CategoryWarning
	default:
		return domain.CategoryDanger
	}
}

// Return the assessment substituted when scoring a candidate fails.
func FallbackAssessment() domain.SafetyAssessment {
	return domain.SafetyAssessment{
		Score:                  FallbackScore,
		Category:               domain.CategoryWarning,
		AffectingIncidentCount: 0,
	}
}

// NormalizeAssessment clamps the score to [0,100] and replaces an unknown
// category with the one implied by the score.
func NormalizeAssessment(a domain.SafetyAssessment) domain.SafetyAssessment {
	if math.IsNaN(a.Score) {
		a.Score = 0
	}
	a.Score = math.Max(0, math.Min(100, a.Score))
	if !a.Category.Valid() {
		a.Category = CategoryForScore(a.Score)
	}
	if a.AffectingIncidentCount < 0 {
		a.AffectingIncidentCount = 0
	}
	return a
}

// RouteLineColor picks the line color for a score.
func RouteLineColor(score float64) string {
	switch CategoryForScore(score) {
	case domain.CategorySafe:
		return colorSafe
	case domain.CategoryWarning:
		return colorWarning
	default:
		return colorDanger
	}
}

// RouteMessage describes the selected route for the status line.
func RouteMessage(r domain.RankedRoute) domain.StatusMessage {
	duration := r.DurationText
	if r.PaceDurationText != "" {
		duration = r.PaceDurationText
	}
	tail := fmt.Sprintf("Distance: %s, Duration: %s", r.DistanceText, duration)

	switch r.Category {
	case domain.CategorySafe:
		return domain.StatusMessage{
			Kind: domain.MessageSafe,
			Text: fmt.Sprintf("This route appears to be safe (Safety Score: %.0f/100). %s", r.Score, tail),
		}
	case domain.CategoryWarning:
		return domain.StatusMessage{
			Kind: domain.MessageWarning,
			Text: fmt.Sprintf("This route has moderate safety concerns (Safety Score: %.0f/100). Stay alert. %s", r.Score, tail),
		}
	default:
		return domain.StatusMessage{
			Kind: domain.MessageDanger,
			Text: fmt.Sprintf(
				"This route has significant safety concerns (Safety Score: %.0f/100). "+
					"Consider traveling during daylight hours or with companions. %s",
				r.Score, tail,
			),
		}
	}
}

// RoutePopup is the text shown when the route line is clicked.
func RoutePopup(r domain.RankedRoute) string {
	return fmt.Sprintf("Safety Score: %.0f/100<br/>%s, %s", r.Score, r.DistanceText, r.DurationText)
}
