package learning

import "time"

// Category is the closed set of preference dimensions tracked per user
type Category string

const (
	CategoryCommunicationStyle Category = "communication_style"
	CategoryDataPreference     Category = "data_preference"
	CategoryChartPreference    Category = "chart_preference"
	CategoryResponseLength     Category = "response_length"
	CategoryDetailLevel        Category = "detail_level"
)

const (
	confidenceStep     = 0.1
	replaceBelowScore  = 0.3
	applyAboveScore    = 0.6
	maxConfidenceScore = 1.0
)

// Preference holds one active value per (user, category)
type Preference struct {
	UserID      string
	Category    Category
	Value       string
	Confidence  float64
	UsageCount  int
	LastUpdated time.Time
}

// UpdatePreference reinforces or erodes the stored preference. A
// matching observation adds a fixed confidence step (capped at 1.0)
// and bumps the usage count; a mismatch subtracts the same step, and
// once confidence falls below 0.3 the stored value is replaced with
// the observation at its proposed confidence.
//
// This is a plain exponential reinforcement rule, not a Bayesian
// estimator. The step and replacement constants are heuristic and
// kept for behavior compatibility.
func (e *Engine) UpdatePreference(userID string, category Category, observed string, proposedConfidence float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	byCategory := e.prefs[userID]
	if byCategory == nil {
		byCategory = map[Category]*Preference{}
		e.prefs[userID] = byCategory
	}

	stored, ok := byCategory[category]
	if !ok {
		byCategory[category] = &Preference{
			UserID:      userID,
			Category:    category,
			Value:       observed,
			Confidence:  proposedConfidence,
			UsageCount:  1,
			LastUpdated: e.now(),
		}
		return
	}

	if stored.Value == observed {
		stored.Confidence += confidenceStep
		if stored.Confidence > maxConfidenceScore {
			stored.Confidence = maxConfidenceScore
		}
		stored.UsageCount++
		stored.LastUpdated = e.now()
		return
	}

	stored.Confidence -= confidenceStep
	stored.LastUpdated = e.now()
	if stored.Confidence < replaceBelowScore {
		stored.Value = observed
		stored.Confidence = proposedConfidence
		stored.UsageCount = 1
	}
}

// Preferences returns a copy of the user's current preference set
func (e *Engine) Preferences(userID string) map[Category]Preference {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := map[Category]Preference{}
	for category, pref := range e.prefs[userID] {
		out[category] = *pref
	}
	return out
}
