package learning

// Derived signals start modest so a single observation never crosses
// the apply gate on its own; it takes repeated reinforcement.
const (
	derivedConfidence      = 0.5
	briefResponseLength    = 150.0
	detailedResponseLength = 400.0
)

// entityCategories maps intent entities to the preference dimension
// they evidence
var entityCategories = map[string]Category{
	"chart_type": CategoryChartPreference,
	"data_type":  CategoryDataPreference,
}

// ObserveEntities turns a resolved intent's entities into preference
// observations. Repeating a value reinforces it past the apply gate;
// a change of habit erodes the stored value until it is replaced.
func (e *Engine) ObserveEntities(userID string, entities map[string]string) {
	for key, category := range entityCategories {
		if value := entities[key]; value != "" {
			e.UpdatePreference(userID, category, value, derivedConfidence)
		}
	}
}

// responseLengthSignal classifies the average response length into a
// length preference, or "" inside the indifferent middle band
func responseLengthSignal(avg float64) string {
	switch {
	case avg <= 0:
		return ""
	case avg < briefResponseLength:
		return "brief"
	case avg > detailedResponseLength:
		return "detailed"
	}
	return ""
}
