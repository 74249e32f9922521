package learning

import (
	"fmt"
	"strings"
)

var casualContractions = [][2]string{
	{"I will", "I'll"},
	{"I would", "I'd"},
	{"cannot", "can't"},
	{"do not", "don't"},
	{"it is", "it's"},
}

// ApplyPersonalization reshapes the response text using the user's
// preferences. Only preferences with confidence above 0.6 apply. Each
// category maps to one deterministic transform; transforms are
// independent and run in a fixed order so composition is stable.
func (e *Engine) ApplyPersonalization(response string, prefs map[Category]Preference) string {
	out := response

	if p, ok := applicable(prefs, CategoryCommunicationStyle); ok {
		out = applyStyle(out, p.Value)
	}
	if p, ok := applicable(prefs, CategoryDetailLevel); ok {
		out = applyDetailLevel(out, p.Value)
	}
	if p, ok := applicable(prefs, CategoryResponseLength); ok {
		out = applyResponseLength(out, p.Value)
	}
	if p, ok := applicable(prefs, CategoryChartPreference); ok {
		out = applyChartHint(out, p.Value)
	}

	return out
}

func applicable(prefs map[Category]Preference, category Category) (Preference, bool) {
	p, ok := prefs[category]
	if !ok || p.Confidence <= applyAboveScore || p.Value == "" {
		return Preference{}, false
	}
	return p, true
}

func applyStyle(response, style string) string {
	switch style {
	case "casual":
		for _, pair := range casualContractions {
			response = strings.ReplaceAll(response, pair[0], pair[1])
		}
	case "formal":
		for _, pair := range casualContractions {
			response = strings.ReplaceAll(response, pair[1], pair[0])
		}
	}
	return response
}

func applyDetailLevel(response, level string) string {
	switch level {
	case "low":
		// Keep only the first paragraph
		if idx := strings.Index(response, "\n\n"); idx > 0 {
			return response[:idx]
		}
	case "high":
		return response + " I can break this down further if that helps."
	}
	return response
}

func applyResponseLength(response, length string) string {
	switch length {
	case "brief":
		return firstSentence(response)
	case "detailed":
		return response + " Would you like more detail on any part of this?"
	}
	return response
}

// applyChartHint appends the preferred chart type as an offer when the
// response talks about a chart without already using that type
func applyChartHint(response, chartType string) string {
	lowered := strings.ToLower(response)
	if !strings.Contains(lowered, "chart") || strings.Contains(lowered, strings.ToLower(chartType)) {
		return response
	}
	return fmt.Sprintf("%s I can show this as a %s chart if you prefer.", response, chartType)
}

func firstSentence(s string) string {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			return s[:i+1]
		}
	}
	return s
}
