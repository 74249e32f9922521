package conversation

import (
	"strings"
	"time"
)

// Phase is the coarse label for where a multi-turn task currently is
type Phase string

const (
	PhaseExploration  Phase = "exploration"
	PhaseAnalysis     Phase = "analysis"
	PhaseModification Phase = "modification"
	PhaseExport       Phase = "export"
	PhaseInsights     Phase = "insights"
)

// phaseTransitions maps the last dispatched action to the next phase.
// Phase changes happen only through this table; unknown actions leave
// the phase untouched.
var phaseTransitions = map[string]Phase{
	"chart_created":      PhaseAnalysis,
	"chart_modified":     PhaseModification,
	"chart_viewed":       PhaseAnalysis,
	"chart_exported":     PhaseExport,
	"data_viewed":        PhaseExploration,
	"data_explored":      PhaseExploration,
	"data_exported":      PhaseExport,
	"data_analyzed":      PhaseInsights,
	"analysis_completed": PhaseInsights,
	"record_created":     PhaseModification,
	"record_updated":     PhaseModification,
	"record_deleted":     PhaseModification,
}

// phaseSuggestions are static follow-up prompts regenerated on each
// update, keyed purely by the new phase
var phaseSuggestions = map[Phase][]string{
	PhaseExploration: {
		"Show me my contacts",
		"View my open deals",
		"What accounts do I have?",
		"Create a chart of my pipeline",
		"Show recent activities",
	},
	PhaseAnalysis: {
		"Make it a pie chart",
		"Break it down by stage",
		"Compare this month to last month",
		"What stands out in this data?",
		"Export this chart",
	},
	PhaseModification: {
		"Undo that change",
		"Update another field",
		"Show me the updated record",
		"Add a note to this record",
		"View related deals",
	},
	PhaseExport: {
		"Export as spreadsheet",
		"Send it to my email",
		"Create another chart",
		"Back to my data",
		"Show export history",
	},
	PhaseInsights: {
		"Summarize the key findings",
		"Which deals need attention?",
		"Chart these insights",
		"Compare to last quarter",
		"What should I do next?",
	},
}

// topicVocabulary is the fixed keyword → topic lookup used by Update
var topicVocabulary = map[string]string{
	"contact":   "contacts",
	"contacts":  "contacts",
	"account":   "accounts",
	"accounts":  "accounts",
	"deal":      "deals",
	"deals":     "deals",
	"pipeline":  "deals",
	"activity":  "activities",
	"meeting":   "activities",
	"chart":     "charts",
	"graph":     "charts",
	"revenue":   "revenue",
	"email":     "messaging",
	"campaign":  "messaging",
	"insight":   "insights",
	"analysis":  "insights",
}

// pronounVocabulary drives deictic-reference detection
var pronounVocabulary = []string{"it", "this", "that", "them", "they", "those", "these"}

// actionPhrases signal that the user wants to act on whatever is active
var actionPhrases = []string{"make it", "change it", "turn it", "update it", "instead", "also add", "as well"}

const (
	maxRecentTopics  = 5
	maxHistoryLength = 20
)

// Topic describes the active chart/data subject of the conversation
type Topic struct {
	Type      string `json:"type"`       // "chart" or "data"
	DataType  string `json:"data_type"`  // contacts, deals, ...
	Dimension string `json:"dimension"`  // grouping field, e.g. "stage"
	ChartType string `json:"chart_type"` // pie, bar, line (charts only)
	Title     string `json:"title"`
}

// PendingConfirmation tracks an action awaiting a yes/no from the user
type PendingConfirmation struct {
	Action   string            `json:"action"`
	Entities map[string]string `json:"entities,omitempty"`
	Question string            `json:"question"`
}

// HistoryEntry is one logged turn in the bounded session ring
type HistoryEntry struct {
	Message   string    `json:"message"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// CurrentContext is the live focus of the session
type CurrentContext struct {
	ActiveTopic         *Topic               `json:"active_topic,omitempty"`
	LastAction          string               `json:"last_action"`
	Phase               Phase                `json:"phase"`
	PendingConfirmation *PendingConfirmation `json:"pending_confirmation,omitempty"`
}

// Memory is the bounded per-session recall
type Memory struct {
	RecentTopics     []string       `json:"recent_topics"`
	History          []HistoryEntry `json:"history"`
	InteractionCount int            `json:"interaction_count"`
}

// State is one session's conversation state. A fresh state starts in
// the exploration phase with empty memory.
type State struct {
	UserID         string         `json:"user_id"`
	SessionID      string         `json:"session_id"`
	CurrentContext CurrentContext `json:"current_context"`
	Memory         Memory         `json:"memory"`
	Suggestions    []string       `json:"suggestions"`
}

func NewState(userID, sessionID string) *State {
	return &State{
		UserID:    userID,
		SessionID: sessionID,
		CurrentContext: CurrentContext{
			Phase: PhaseExploration,
		},
		Suggestions: phaseSuggestions[PhaseExploration],
	}
}

// Update folds one turn into the state: counts the interaction,
// extracts topics, records history, recomputes the phase from the
// transition table and regenerates suggestions.
func (s *State) Update(message, action string) {
	s.Memory.InteractionCount++

	for _, topic := range ExtractTopics(message) {
		s.rememberTopic(topic)
	}

	s.Memory.History = append(s.Memory.History, HistoryEntry{
		Message:   message,
		Action:    action,
		Timestamp: time.Now(),
	})
	if len(s.Memory.History) > maxHistoryLength {
		s.Memory.History = s.Memory.History[len(s.Memory.History)-maxHistoryLength:]
	}

	s.CurrentContext.LastAction = action
	if next, ok := phaseTransitions[action]; ok {
		s.CurrentContext.Phase = next
	}

	s.Suggestions = phaseSuggestions[s.CurrentContext.Phase]
}

// rememberTopic prepends a topic to the deduplicated recent list
func (s *State) rememberTopic(topic string) {
	topics := make([]string, 0, maxRecentTopics)
	topics = append(topics, topic)
	for _, t := range s.Memory.RecentTopics {
		if t == topic {
			continue
		}
		topics = append(topics, t)
		if len(topics) == maxRecentTopics {
			break
		}
	}
	s.Memory.RecentTopics = topics
}

// SetActiveTopic replaces the active topic and forces the analysis phase
func (s *State) SetActiveTopic(topic *Topic) {
	s.CurrentContext.ActiveTopic = topic
	s.CurrentContext.Phase = PhaseAnalysis
	s.Suggestions = phaseSuggestions[PhaseAnalysis]
}

// SetPendingConfirmation parks an action until the user confirms it
func (s *State) SetPendingConfirmation(p *PendingConfirmation) {
	s.CurrentContext.PendingConfirmation = p
}

// ClearPendingConfirmation drops any parked action
func (s *State) ClearPendingConfirmation() {
	s.CurrentContext.PendingConfirmation = nil
}

// IsReferringToActiveTopic reports whether the message plausibly
// refers to the active topic: either a pronoun/action phrase, or a
// topic-type plus dimension keyword matching the descriptor.
func (s *State) IsReferringToActiveTopic(message string) bool {
	topic := s.CurrentContext.ActiveTopic
	if topic == nil {
		return false
	}

	lowered := strings.ToLower(message)
	words := strings.Fields(lowered)

	for _, phrase := range actionPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	for _, pronoun := range pronounVocabulary {
		for _, w := range words {
			if strings.Trim(w, ".,!?") == pronoun {
				return true
			}
		}
	}
	if strings.Contains(lowered, "the chart") || strings.Contains(lowered, "the graph") {
		return topic.Type == "chart"
	}

	typeMatch := topic.DataType != "" && strings.Contains(lowered, strings.TrimSuffix(topic.DataType, "s"))
	dimensionMatch := topic.Dimension != "" && strings.Contains(lowered, strings.ToLower(topic.Dimension))
	return typeMatch && dimensionMatch
}

// Summary renders the state for prompt injection
func (s *State) Summary() string {
	var sb strings.Builder

	sb.WriteString("Phase: " + string(s.CurrentContext.Phase) + "\n")
	if s.CurrentContext.LastAction != "" {
		sb.WriteString("Last action: " + s.CurrentContext.LastAction + "\n")
	}
	if topic := s.CurrentContext.ActiveTopic; topic != nil {
		sb.WriteString("Active topic: " + topic.Type)
		if topic.DataType != "" {
			sb.WriteString(" of " + topic.DataType)
		}
		if topic.Dimension != "" {
			sb.WriteString(" by " + topic.Dimension)
		}
		sb.WriteString("\n")
	}
	if p := s.CurrentContext.PendingConfirmation; p != nil {
		sb.WriteString("Awaiting confirmation for: " + p.Action + "\n")
	}
	if len(s.Memory.RecentTopics) > 0 {
		sb.WriteString("Recent topics: " + strings.Join(s.Memory.RecentTopics, ", ") + "\n")
	}

	return sb.String()
}

// ExtractTopics returns the topic labels present in the message, in
// order of first appearance, using the fixed vocabulary only
func ExtractTopics(message string) []string {
	lowered := strings.ToLower(message)
	seen := make(map[string]bool)
	topics := make([]string, 0)

	for _, word := range strings.Fields(lowered) {
		word = strings.Trim(word, ".,!?'\"")
		if topic, ok := topicVocabulary[word]; ok && !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}
	return topics
}

// SuggestionsForPhase exposes the static suggestion list for a phase
func SuggestionsForPhase(phase Phase) []string {
	return phaseSuggestions[phase]
}
