package intent

import (
	"strings"
)

// Action constants - the closed verb vocabulary. Anything outside this
// set normalizes to general_conversation.
const (
	ActionCreateChart  = "create_chart"
	ActionModifyChart  = "modify_chart"
	ActionViewChart    = "view_chart"
	ActionAnalyzeChart = "analyze_chart"
	ActionExportChart  = "export_chart"

	ActionViewData    = "view_data"
	ActionExploreData = "explore_data"
	ActionAnalyzeData = "analyze_data"
	ActionExportData  = "export_data"

	ActionCreateContact = "create_contact"
	ActionUpdateContact = "update_contact"
	ActionDeleteContact = "delete_contact"
	ActionCreateAccount = "create_account"
	ActionUpdateAccount = "update_account"
	ActionDeleteAccount = "delete_account"
	ActionCreateDeal    = "create_deal"
	ActionUpdateDeal    = "update_deal"
	ActionDeleteDeal    = "delete_deal"
	ActionLogActivity   = "log_activity"

	ActionSendMessage     = "send_message"
	ActionScheduleMeeting = "schedule_meeting"
	ActionGenerateContent = "generate_content"
	ActionViewProfile     = "view_profile"

	ActionGeneralConversation = "general_conversation"
)

// ReferringTo constants for intent context
const (
	ReferringCurrentTopic  = "current_topic"
	ReferringPreviousTopic = "previous_topic"
	ReferringNewRequest    = "new_request"
	ReferringExistingData  = "existing_data"
)

// actionVocabulary indexes the closed set for validation
var actionVocabulary = map[string]bool{
	ActionCreateChart: true, ActionModifyChart: true, ActionViewChart: true,
	ActionAnalyzeChart: true, ActionExportChart: true,
	ActionViewData: true, ActionExploreData: true, ActionAnalyzeData: true,
	ActionExportData: true,
	ActionCreateContact: true, ActionUpdateContact: true, ActionDeleteContact: true,
	ActionCreateAccount: true, ActionUpdateAccount: true, ActionDeleteAccount: true,
	ActionCreateDeal: true, ActionUpdateDeal: true, ActionDeleteDeal: true,
	ActionLogActivity: true,
	ActionSendMessage: true, ActionScheduleMeeting: true, ActionGenerateContent: true,
	ActionViewProfile: true,
	ActionGeneralConversation: true,
}

var referringVocabulary = map[string]bool{
	ReferringCurrentTopic:  true,
	ReferringPreviousTopic: true,
	ReferringNewRequest:    true,
	ReferringExistingData:  true,
}

// Actions returns the vocabulary for prompt construction, in a stable order
func Actions() []string {
	return []string{
		ActionCreateChart, ActionModifyChart, ActionViewChart, ActionAnalyzeChart, ActionExportChart,
		ActionViewData, ActionExploreData, ActionAnalyzeData, ActionExportData,
		ActionCreateContact, ActionUpdateContact, ActionDeleteContact,
		ActionCreateAccount, ActionUpdateAccount, ActionDeleteAccount,
		ActionCreateDeal, ActionUpdateDeal, ActionDeleteDeal,
		ActionLogActivity, ActionSendMessage, ActionScheduleMeeting,
		ActionGenerateContent, ActionViewProfile, ActionGeneralConversation,
	}
}

// IsKnownAction reports vocabulary membership
func IsKnownAction(action string) bool {
	return actionVocabulary[action]
}

// Context carries what the intent is referring back to
type Context struct {
	ReferringTo string `json:"referring_to"`
}

// Metadata carries the clarification flags
type Metadata struct {
	NeedsClarification    bool   `json:"needs_clarification"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`
}

// Intent is the structured representation of what the user wants.
// Built fresh per message, immutable once normalized, consumed once
// by the router.
type Intent struct {
	Action          string            `json:"action"`
	Confidence      float64           `json:"confidence"`
	OriginalMessage string            `json:"original_message"`
	Entities        map[string]string `json:"entities"`
	Context         Context           `json:"context"`
	Metadata        Metadata          `json:"metadata"`
}

// Normalize defensively coerces every field so the Intent is always
// well-formed regardless of model output quality. It is idempotent:
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw *Intent) *Intent {
	if raw == nil {
		raw = &Intent{}
	}
	out := *raw

	out.Action = strings.ToLower(strings.TrimSpace(out.Action))
	if !actionVocabulary[out.Action] {
		out.Action = ActionGeneralConversation
	}

	// Overrange clamps to the nearer bound. Zero means the model
	// omitted confidence and defaults to the midpoint; negatives clamp
	// to the zero bound and take the same default, which keeps
	// normalization idempotent.
	if out.Confidence > 1 {
		out.Confidence = 1
	}
	if out.Confidence <= 0 {
		out.Confidence = 0.5
	}

	if out.Entities == nil {
		out.Entities = map[string]string{}
	}
	if !referringVocabulary[out.Context.ReferringTo] {
		out.Context.ReferringTo = ReferringNewRequest
	}
	if !out.Metadata.NeedsClarification {
		out.Metadata.ClarificationQuestion = ""
	}

	return &out
}

// Fallback is the safe default produced when every classification
// strategy has failed: a low-confidence general conversation asking
// for clarification. The pipeline must never crash the hosting
// request handler, so this is the floor every path lands on.
func Fallback(message string) *Intent {
	return Normalize(&Intent{
		Action:          ActionGeneralConversation,
		Confidence:      0.3,
		OriginalMessage: message,
		Metadata: Metadata{
			NeedsClarification:    true,
			ClarificationQuestion: "I'm not sure I understood. Could you rephrase that?",
		},
	})
}
