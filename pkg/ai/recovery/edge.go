package recovery

import (
	"fmt"
	"strings"
)

const (
	maxMessageLen       = 1000
	oversizedDatasetCap = 1000
	errorStreakCeiling  = 3
)

// Input carries everything the pre-filter rules can inspect. Signals
// beyond the message itself (dataset size, memory pressure, error
// streak) are supplied by the caller.
type Input struct {
	Message        string
	UserID         string
	DatasetSize    int
	MemoryPressure bool
	ErrorStreak    int
}

// Response is a short-circuit reply produced by a matched rule
type Response struct {
	Message     string
	Code        string
	Suggestions []string
}

// Rule pairs a predicate with its handler. Lower priority runs first;
// the first matching rule wins.
type Rule struct {
	Name      string
	Priority  int
	Predicate func(in Input) bool
	Handle    func(in Input) *Response
}

var greetingVocabulary = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true,
	"good morning": true, "good afternoon": true, "good evening": true,
	"hi there": true, "hello there": true,
}

// commonFirstNames flags bare first names that almost always need a
// surname to resolve against the record set
var commonFirstNames = map[string]bool{
	"john": true, "mike": true, "michael": true, "sarah": true,
	"david": true, "chris": true, "anna": true, "james": true,
	"mary": true, "tom": true,
}

// EdgeFilter holds the rule set sorted by priority
type EdgeFilter struct {
	rules []Rule
}

// NewEdgeFilter builds the standard rule set. Rules are stored in
// priority order; Apply walks them front to back.
func NewEdgeFilter() *EdgeFilter {
	f := &EdgeFilter{}
	f.rules = []Rule{
		{
			Name:      "empty_message",
			Priority:  10,
			Predicate: func(in Input) bool { return strings.TrimSpace(in.Message) == "" },
			Handle: func(in Input) *Response {
				return &Response{
					Message:     "I didn't catch that. What would you like to do?",
					Code:        "EMPTY_MESSAGE",
					Suggestions: []string{"Show me my contacts", "Create a chart of deals"},
				}
			},
		},
		{
			Name:      "oversized_message",
			Priority:  20,
			Predicate: func(in Input) bool { return len(in.Message) > maxMessageLen },
			Handle: func(in Input) *Response {
				return &Response{
					Message:     "That message is quite long. Could you break it into smaller requests?",
					Code:        "OVERSIZED_MESSAGE",
					Suggestions: []string{"Ask one thing at a time"},
				}
			},
		},
		{
			Name:     "memory_pressure",
			Priority: 30,
			Predicate: func(in Input) bool {
				return in.MemoryPressure
			},
			Handle: func(in Input) *Response {
				return &Response{
					Message:     "I'm handling a lot right now. Please try again in a moment.",
					Code:        "MEMORY_PRESSURE",
					Suggestions: []string{"Retry in a few seconds"},
				}
			},
		},
		{
			Name:     "user_error_streak",
			Priority: 40,
			Predicate: func(in Input) bool {
				return in.ErrorStreak >= errorStreakCeiling
			},
			Handle: func(in Input) *Response {
				return &Response{
					Message:     "We seem to be going in circles. Let's start fresh: what would you like to do?",
					Code:        "ERROR_STREAK",
					Suggestions: []string{"Show me my contacts", "View my deals", "Create a chart"},
				}
			},
		},
		{
			Name:     "greeting",
			Priority: 50,
			Predicate: func(in Input) bool {
				normalized := strings.ToLower(strings.TrimSpace(strings.TrimRight(in.Message, ".!?")))
				return greetingVocabulary[normalized]
			},
			Handle: func(in Input) *Response {
				return &Response{
					Message:     "Hello! I can help you explore your CRM data, manage records, or build charts. What would you like to do?",
					Code:        "GREETING",
					Suggestions: []string{"Show me my contacts", "View my pipeline", "Create a chart of deals"},
				}
			},
		},
		{
			Name:     "multi_question",
			Priority: 60,
			Predicate: func(in Input) bool {
				return strings.Count(in.Message, "?") >= 2
			},
			Handle: func(in Input) *Response {
				return &Response{
					Message:     "That's a few questions at once. Which one should I start with?",
					Code:        "MULTI_QUESTION",
					Suggestions: []string{"Ask one question at a time"},
				}
			},
		},
		{
			Name:      "ambiguous_common_name",
			Priority:  70,
			Predicate: hasBareCommonName,
			Handle: func(in Input) *Response {
				return &Response{
					Message:     fmt.Sprintf("Which %s do you mean? A full name helps me find the right record.", bareCommonName(in.Message)),
					Code:        "AMBIGUOUS_NAME",
					Suggestions: []string{"Use the full name, like \"John Smith\""},
				}
			},
		},
		{
			Name:     "oversized_dataset",
			Priority: 80,
			Predicate: func(in Input) bool {
				return in.DatasetSize > oversizedDatasetCap
			},
			Handle: func(in Input) *Response {
				return &Response{
					Message:     "That's a lot of records to work with at once. Try narrowing it down with a filter first.",
					Code:        "OVERSIZED_DATASET",
					Suggestions: []string{"Filter by owner", "Filter by date range"},
				}
			},
		},
	}
	return f
}

// Apply runs the rules in priority order and returns the first match's
// response, or nil when no rule fires
func (f *EdgeFilter) Apply(in Input) *Response {
	for _, rule := range f.rules {
		if rule.Predicate(in) {
			return rule.Handle(in)
		}
	}
	return nil
}

// hasBareCommonName fires only when the whole message is a bare common
// first name. Names embedded in a request ("email john") go through
// reference resolution instead, which can enumerate the real candidate
// records.
func hasBareCommonName(in Input) bool {
	return bareCommonName(in.Message) != ""
}

func bareCommonName(message string) string {
	words := strings.Fields(strings.ToLower(strings.Map(stripPunct, message)))
	if len(words) == 1 && commonFirstNames[words[0]] {
		return words[0]
	}
	return ""
}

func stripPunct(r rune) rune {
	switch r {
	case ',', '.', '!', '?', ';', ':', '\'':
		return -1
	}
	return r
}
