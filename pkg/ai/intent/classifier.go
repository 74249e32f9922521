package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/examples"
	"crm-assistant-be/pkg/llm"
)

const (
	confidenceGate      = 0.7
	maxPromptExamples   = 3
	confirmationMaxLen  = 20
	confirmationScore   = 0.95
)

// affirmativeVocabulary drives the confirmation shortcut
var affirmativeVocabulary = map[string]bool{
	"yes": true, "yes please": true, "ok": true, "okay": true, "sure": true,
	"yep": true, "yeah": true, "confirm": true, "confirmed": true,
	"do it": true, "go ahead": true, "sounds good": true, "y": true,
}

// clarificationTable maps (action, missing required entity) to the
// question asked when confidence is below the gate
var clarificationTable = map[string]struct {
	required string
	question string
}{
	ActionCreateChart:     {"data_type", "What data would you like to chart?"},
	ActionModifyChart:     {"change", "What would you like to change about the chart?"},
	ActionViewData:        {"data_type", "Which records would you like to see?"},
	ActionAnalyzeData:     {"data_type", "What data should I analyze?"},
	ActionUpdateContact:   {"contact_name", "Which contact would you like to update?"},
	ActionDeleteContact:   {"contact_name", "Which contact should I delete?"},
	ActionUpdateAccount:   {"account_name", "Which account would you like to update?"},
	ActionDeleteAccount:   {"account_name", "Which account should I delete?"},
	ActionUpdateDeal:      {"deal_name", "Which deal would you like to update?"},
	ActionDeleteDeal:      {"deal_name", "Which deal should I delete?"},
	ActionSendMessage:     {"recipient", "Who should I send that to?"},
	ActionScheduleMeeting: {"attendee", "Who is the meeting with?"},
}

const defaultClarificationQuestion = "Could you tell me a bit more about what you'd like to do?"

// Classifier converts (message, conversation state, retrieved
// examples) into a normalized Intent. The structured pass constrains
// the model to a fixed JSON schema and repairs malformed output
// before giving up.
type Classifier struct {
	llmProvider llm.LLMProvider
	examples    *examples.Store
	logger      *log.Logger
}

func NewClassifier(llmProvider llm.LLMProvider, exampleStore *examples.Store, logger *log.Logger) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		examples:    exampleStore,
		logger:      logger,
	}
}

// Classify runs the structured pass. The returned error means the
// stage failed and the caller should fall through to the next tier;
// a returned Intent is always normalized and vocabulary-safe.
func (c *Classifier) Classify(ctx context.Context, message string, state *conversation.State) (*Intent, error) {
	if shortcut := c.confirmationShortcut(message, state); shortcut != nil {
		c.logger.Printf("[INTENT] Confirmation shortcut: %s", shortcut.Action)
		return shortcut, nil
	}

	prompt := c.buildStructuredPrompt(message, state)

	completion, err := c.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithMaxTokens(300),
		llm.WithUser(state.UserID),
		llm.WithOperation("intent_classification"),
	)
	if err != nil {
		return nil, fmt.Errorf("structured classification: %w", err)
	}

	parsed, err := parseIntentJSON(completion.Text)
	if err != nil {
		return nil, fmt.Errorf("structured parse: %w", err)
	}

	result := c.finalize(parsed, message, state)
	c.logger.Printf("[INTENT] Structured: %s (confidence %.2f, referring %s)",
		result.Action, result.Confidence, result.Context.ReferringTo)
	return result, nil
}

// ClassifyGeneral is the last-resort pass: a freeform prompt whose
// output is mined for an action keyword when JSON parsing fails. It
// only errors when the model itself is unreachable.
func (c *Classifier) ClassifyGeneral(ctx context.Context, message string, state *conversation.State) (*Intent, error) {
	prompt := c.buildGeneralPrompt(message, state)

	completion, err := c.llmProvider.Generate(ctx, prompt,
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(300),
		llm.WithUser(state.UserID),
		llm.WithOperation("general_classification"),
	)
	if err != nil {
		return nil, fmt.Errorf("general classification: %w", err)
	}

	parsed, err := parseIntentJSON(completion.Text)
	if err != nil {
		// Keyword fallback: scan the response for any vocabulary action
		lowered := strings.ToLower(completion.Text)
		for _, action := range Actions() {
			if strings.Contains(lowered, action) {
				parsed = &Intent{Action: action, Confidence: 0.5}
				break
			}
		}
		if parsed == nil {
			return Fallback(message), nil
		}
	}

	result := c.finalize(parsed, message, state)
	c.logger.Printf("[INTENT] General: %s (confidence %.2f)", result.Action, result.Confidence)
	return result, nil
}

// confirmationShortcut resolves a short affirmative against a pending
// confirmation, bypassing classification entirely
func (c *Classifier) confirmationShortcut(message string, state *conversation.State) *Intent {
	pending := state.CurrentContext.PendingConfirmation
	if pending == nil || len(message) > confirmationMaxLen {
		return nil
	}

	normalized := strings.ToLower(strings.TrimSpace(strings.TrimRight(message, ".!")))
	if !affirmativeVocabulary[normalized] {
		return nil
	}

	entities := map[string]string{}
	for k, v := range pending.Entities {
		entities[k] = v
	}

	return Normalize(&Intent{
		Action:          pending.Action,
		Confidence:      confirmationScore,
		OriginalMessage: message,
		Entities:        entities,
		Context:         Context{ReferringTo: ReferringCurrentTopic},
	})
}

// finalize normalizes the parsed intent, applies context inheritance
// from the active topic and enforces the confidence gate
func (c *Classifier) finalize(parsed *Intent, message string, state *conversation.State) *Intent {
	parsed.OriginalMessage = message
	result := Normalize(parsed)

	c.inheritActiveTopic(result, message, state)

	if result.Confidence < confidenceGate {
		result.Metadata.NeedsClarification = true
		result.Metadata.ClarificationQuestion = clarificationQuestion(result)
	}

	return result
}

// inheritActiveTopic copies missing entity fields from the active
// topic descriptor when the message refers back to it
func (c *Classifier) inheritActiveTopic(result *Intent, message string, state *conversation.State) {
	topic := state.CurrentContext.ActiveTopic
	if topic == nil || !state.IsReferringToActiveTopic(message) {
		return
	}

	result.Context.ReferringTo = ReferringCurrentTopic
	if result.Entities["data_type"] == "" && topic.DataType != "" {
		result.Entities["data_type"] = topic.DataType
	}
	if result.Entities["dimension"] == "" && topic.Dimension != "" {
		result.Entities["dimension"] = topic.Dimension
	}
	if result.Entities["chart_type"] == "" && topic.ChartType != "" {
		result.Entities["chart_type"] = topic.ChartType
	}
}

// clarificationQuestion picks the question from the decision table
// keyed by (action, missing required entity)
func clarificationQuestion(result *Intent) string {
	row, ok := clarificationTable[result.Action]
	if !ok {
		return defaultClarificationQuestion
	}
	if result.Entities[row.required] != "" {
		return defaultClarificationQuestion
	}
	return row.question
}

func (c *Classifier) buildStructuredPrompt(message string, state *conversation.State) string {
	var prompt strings.Builder

	prompt.WriteString("You classify CRM assistant requests. You do NOT answer them.\n")
	prompt.WriteString("Choose exactly one action from this list:\n")
	for _, action := range Actions() {
		prompt.WriteString("- " + action + "\n")
	}
	prompt.WriteString("\n")

	if summary := state.Summary(); summary != "" {
		prompt.WriteString("Conversation state:\n")
		prompt.WriteString(summary)
		prompt.WriteString("\n")
	}

	c.writeExamples(&prompt, message)

	prompt.WriteString("User message:\n")
	prompt.WriteString(message)
	prompt.WriteString("\n\nRespond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"action\": \"view_data\",\n")
	prompt.WriteString("  \"confidence\": 0.95,\n")
	prompt.WriteString("  \"entities\": {\"data_type\": \"contacts\"},\n")
	prompt.WriteString("  \"context\": {\"referring_to\": \"new_request\"}\n")
	prompt.WriteString("}\n")

	return prompt.String()
}

func (c *Classifier) buildGeneralPrompt(message string, state *conversation.State) string {
	var prompt strings.Builder

	prompt.WriteString("A CRM assistant user said:\n")
	prompt.WriteString(message)
	prompt.WriteString("\n\n")
	if summary := state.Summary(); summary != "" {
		prompt.WriteString("Context:\n")
		prompt.WriteString(summary)
		prompt.WriteString("\n")
	}
	prompt.WriteString("What do they want? Pick the closest action from: ")
	prompt.WriteString(strings.Join(Actions(), ", "))
	prompt.WriteString("\nAnswer as JSON: {\"action\": \"...\", \"confidence\": 0.0, \"entities\": {}}")

	return prompt.String()
}

// writeExamples injects up to 3 retrieved examples, walking the
// domains from most to least specific for this message
func (c *Classifier) writeExamples(prompt *strings.Builder, message string) {
	if c.examples == nil {
		return
	}

	collected := make([]examples.InteractionExample, 0, maxPromptExamples)
	for _, domain := range []examples.Domain{examples.DomainChart, examples.DomainAnalysis, examples.DomainCRM, examples.DomainGeneral} {
		for _, ex := range c.examples.Retrieve(message, domain) {
			collected = append(collected, ex)
			if len(collected) == maxPromptExamples {
				break
			}
		}
		if len(collected) == maxPromptExamples {
			break
		}
	}

	if len(collected) == 0 {
		return
	}

	prompt.WriteString("Past successful classifications:\n")
	for _, ex := range collected {
		prompt.WriteString(fmt.Sprintf("- %q -> %s\n", ex.Query, ex.Intent))
	}
	prompt.WriteString("\n")
}

// parseIntentJSON unmarshals the model output, repairing it by
// extracting the first balanced JSON object when the raw text fails
func parseIntentJSON(response string) (*Intent, error) {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed Intent
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		return &parsed, nil
	}

	repaired := extractBalancedJSON(cleaned)
	if repaired == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed after repair: %w", err)
	}
	return &parsed, nil
}

// extractBalancedJSON returns the first balanced {...} block,
// respecting strings and escapes
func extractBalancedJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
