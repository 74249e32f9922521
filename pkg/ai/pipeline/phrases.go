package pipeline

import (
	"strings"

	"crm-assistant-be/pkg/ai/cache"
	"crm-assistant-be/pkg/ai/intent"
)

const phraseConfidence = 0.95

type phraseEntry struct {
	action   string
	entities map[string]string
}

// phraseDictionary maps canonical phrasings to their intent. Lookups
// go through NormalizeMessage, so trailing punctuation and casing
// never miss.
var phraseDictionary = map[string]phraseEntry{
	"show me contacts":        {intent.ActionViewData, map[string]string{"data_type": "contacts"}},
	"show me my contacts":     {intent.ActionViewData, map[string]string{"data_type": "contacts"}},
	"show my contacts":        {intent.ActionViewData, map[string]string{"data_type": "contacts"}},
	"show contacts":           {intent.ActionViewData, map[string]string{"data_type": "contacts"}},
	"show me accounts":        {intent.ActionViewData, map[string]string{"data_type": "accounts"}},
	"show me my accounts":     {intent.ActionViewData, map[string]string{"data_type": "accounts"}},
	"show me deals":           {intent.ActionViewData, map[string]string{"data_type": "deals"}},
	"show me my deals":        {intent.ActionViewData, map[string]string{"data_type": "deals"}},
	"show me my pipeline":     {intent.ActionViewData, map[string]string{"data_type": "deals"}},
	"view my pipeline":        {intent.ActionViewData, map[string]string{"data_type": "deals"}},
	"show me activities":      {intent.ActionViewData, map[string]string{"data_type": "activities"}},
	"show recent activities":  {intent.ActionViewData, map[string]string{"data_type": "activities"}},
	"create a chart":          {intent.ActionCreateChart, nil},
	"make a chart":            {intent.ActionCreateChart, nil},
	"create a chart of deals": {intent.ActionCreateChart, map[string]string{"data_type": "deals"}},
	"chart my deals":          {intent.ActionCreateChart, map[string]string{"data_type": "deals"}},
	"chart my pipeline":       {intent.ActionCreateChart, map[string]string{"data_type": "deals"}},
	"make it a pie chart":     {intent.ActionModifyChart, map[string]string{"chart_type": "pie"}},
	"make it a bar chart":     {intent.ActionModifyChart, map[string]string{"chart_type": "bar"}},
	"make it a line chart":    {intent.ActionModifyChart, map[string]string{"chart_type": "line"}},
	"export this chart":       {intent.ActionExportChart, nil},
	"export the chart":        {intent.ActionExportChart, nil},
	"export my data":          {intent.ActionExportData, nil},
	"analyze this data":       {intent.ActionAnalyzeData, nil},
	"what stands out":         {intent.ActionAnalyzeData, nil},
	"show my profile":         {intent.ActionViewProfile, nil},
}

// lookupPhrase returns a ready intent for canonical phrasings, nil on miss
func lookupPhrase(message string) *intent.Intent {
	entry, ok := phraseDictionary[cache.NormalizeMessage(message)]
	if !ok {
		return nil
	}

	entities := map[string]string{}
	for k, v := range entry.entities {
		entities[k] = v
	}
	return intent.Normalize(&intent.Intent{
		Action:          entry.action,
		Confidence:      phraseConfidence,
		OriginalMessage: message,
		Entities:        entities,
	})
}

// isCountQuery flags count/aggregate questions. Their answers change
// with the data, so they must bypass the phrase and understanding
// caches and always re-resolve fresh.
func isCountQuery(message string) bool {
	lowered := strings.ToLower(message)
	return strings.Contains(lowered, "how many") ||
		strings.Contains(lowered, "count of") ||
		strings.Contains(lowered, "number of") ||
		strings.Contains(lowered, "total number") ||
		strings.HasPrefix(lowered, "count ")
}
