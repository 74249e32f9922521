package intent

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/examples"
	"crm-assistant-be/pkg/llm"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.response}, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	f.prompts = append(f.prompts, prompt)
	return f.Chat(ctx, nil, opts...)
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newClassifier(response string) (*Classifier, *fakeLLM) {
	provider := &fakeLLM{response: response}
	return NewClassifier(provider, examples.NewStore(10), testLogger()), provider
}

func TestNormalizeUnknownActionFallsBack(t *testing.T) {
	got := Normalize(&Intent{Action: "launch_rocket", Confidence: 0.9})
	if got.Action != ActionGeneralConversation {
		t.Errorf("action = %q, want general_conversation", got.Action)
	}
}

func TestNormalizeClampsConfidence(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"missing defaults", 0, 0.5},
		{"negative defaults", -0.2, 0.5},
		{"overrange clamps to upper bound", 1.7, 1.0},
		{"slightly overrange clamps", 1.05, 1.0},
		{"valid preserved", 0.82, 0.82},
		{"upper bound preserved", 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(&Intent{Action: ActionViewData, Confidence: tt.in})
			if got.Confidence != tt.want {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	raws := []*Intent{
		nil,
		{},
		{Action: "LAUNCH", Confidence: -3},
		{Action: ActionCreateChart, Confidence: 0.9, Entities: map[string]string{"data_type": "deals"}},
		{Action: "view_data", Context: Context{ReferringTo: "somewhere"}},
	}

	for _, raw := range raws {
		once := Normalize(raw)
		twice := Normalize(once)
		if !intentsEqual(once, twice) {
			t.Errorf("Normalize not idempotent: %+v vs %+v", once, twice)
		}
	}
}

func intentsEqual(a, b *Intent) bool {
	if a.Action != b.Action || a.Confidence != b.Confidence ||
		a.OriginalMessage != b.OriginalMessage || a.Context != b.Context ||
		a.Metadata != b.Metadata || len(a.Entities) != len(b.Entities) {
		return false
	}
	for k, v := range a.Entities {
		if b.Entities[k] != v {
			return false
		}
	}
	return true
}

func TestClassifyWellFormedResponse(t *testing.T) {
	c, _ := newClassifier(`{"action": "view_data", "confidence": 0.92, "entities": {"data_type": "contacts"}}`)
	state := conversation.NewState("user-1", "session-1")

	got, err := c.Classify(context.Background(), "show me contacts", state)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Action != ActionViewData {
		t.Errorf("action = %q, want view_data", got.Action)
	}
	if got.Metadata.NeedsClarification {
		t.Error("high-confidence intent should not need clarification")
	}
}

func TestClassifyRepairsWrappedJSON(t *testing.T) {
	c, _ := newClassifier("Sure! Here is the classification:\n```json\n{\"action\": \"create_chart\", \"confidence\": 0.88, \"entities\": {\"data_type\": \"deals\"}}\n```\nLet me know if you need more.")
	state := conversation.NewState("user-1", "session-1")

	got, err := c.Classify(context.Background(), "chart my deals", state)
	if err != nil {
		t.Fatalf("Classify should repair wrapped JSON, got error: %v", err)
	}
	if got.Action != ActionCreateChart {
		t.Errorf("action = %q, want create_chart", got.Action)
	}
}

func TestClassifyGarbageActionStaysInVocabulary(t *testing.T) {
	c, _ := newClassifier(`{"action": "fly_to_moon", "confidence": 9.5}`)
	state := conversation.NewState("user-1", "session-1")

	got, err := c.Classify(context.Background(), "do something weird", state)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if !IsKnownAction(got.Action) {
		t.Errorf("action %q outside closed vocabulary", got.Action)
	}
	if got.Confidence < 0 || got.Confidence > 1 {
		t.Errorf("confidence %v outside [0,1]", got.Confidence)
	}
}

func TestClassifyUnparsableErrors(t *testing.T) {
	c, _ := newClassifier("no json here at all")
	state := conversation.NewState("user-1", "session-1")

	if _, err := c.Classify(context.Background(), "hello", state); err == nil {
		t.Error("structured pass should report unparsable output so the cascade can fall through")
	}
}

func TestConfirmationShortcut(t *testing.T) {
	c, provider := newClassifier("{}")
	state := conversation.NewState("user-1", "session-1")
	state.SetPendingConfirmation(&conversation.PendingConfirmation{
		Action:   ActionUpdateContact,
		Entities: map[string]string{"contact_name": "John Smith", "field": "email"},
		Question: "Update John Smith's email?",
	})

	got, err := c.Classify(context.Background(), "yes", state)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Action != ActionUpdateContact {
		t.Errorf("action = %q, want pending update_contact", got.Action)
	}
	if got.Metadata.NeedsClarification {
		t.Error("confirmed intent must not ask for clarification")
	}
	if got.Entities["contact_name"] != "John Smith" {
		t.Error("pending entities should carry over")
	}
	if len(provider.prompts) != 0 {
		t.Error("shortcut must bypass the model entirely")
	}
}

func TestConfirmationShortcutRespectsLength(t *testing.T) {
	c, _ := newClassifier(`{"action": "general_conversation", "confidence": 0.9}`)
	state := conversation.NewState("user-1", "session-1")
	state.SetPendingConfirmation(&conversation.PendingConfirmation{Action: ActionDeleteDeal})

	long := "yes but actually first tell me what this will change"
	got, err := c.Classify(context.Background(), long, state)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Action == ActionDeleteDeal {
		t.Error("long message must not trigger the confirmation shortcut")
	}
}

func TestLowConfidenceForcesClarification(t *testing.T) {
	c, _ := newClassifier(`{"action": "update_contact", "confidence": 0.45}`)
	state := conversation.NewState("user-1", "session-1")

	got, err := c.Classify(context.Background(), "maybe change something", state)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if !got.Metadata.NeedsClarification {
		t.Fatal("confidence below gate must force clarification")
	}
	if got.Metadata.ClarificationQuestion != "Which contact would you like to update?" {
		t.Errorf("question = %q, want the update_contact table entry", got.Metadata.ClarificationQuestion)
	}
}

func TestContextInheritanceFromActiveTopic(t *testing.T) {
	c, _ := newClassifier(`{"action": "modify_chart", "confidence": 0.8, "entities": {"chart_type": "pie"}}`)
	state := conversation.NewState("user-1", "session-1")
	state.SetActiveTopic(&conversation.Topic{
		Type: "chart", DataType: "deals", Dimension: "stage", ChartType: "bar",
	})

	got, err := c.Classify(context.Background(), "make it a pie chart", state)
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Context.ReferringTo != ReferringCurrentTopic {
		t.Errorf("referring_to = %q, want current_topic", got.Context.ReferringTo)
	}
	if got.Entities["data_type"] != "deals" {
		t.Error("missing data_type should be inherited from active topic")
	}
	if got.Entities["dimension"] != "stage" {
		t.Error("missing dimension should be inherited from active topic")
	}
	if got.Entities["chart_type"] != "pie" {
		t.Error("explicit chart_type must not be overwritten by the topic")
	}
}

func TestClassifyGeneralKeywordFallback(t *testing.T) {
	c, _ := newClassifier("The user clearly wants to view_data for their pipeline.")
	state := conversation.NewState("user-1", "session-1")

	got, err := c.ClassifyGeneral(context.Background(), "show pipeline", state)
	if err != nil {
		t.Fatalf("ClassifyGeneral returned error: %v", err)
	}
	if got.Action != ActionViewData {
		t.Errorf("action = %q, want view_data from keyword scan", got.Action)
	}
}

func TestClassifyGeneralGarbageFallsBackSafely(t *testing.T) {
	c, _ := newClassifier("complete nonsense with no vocabulary words")
	state := conversation.NewState("user-1", "session-1")

	got, err := c.ClassifyGeneral(context.Background(), "???", state)
	if err != nil {
		t.Fatalf("ClassifyGeneral returned error: %v", err)
	}
	if got.Action != ActionGeneralConversation {
		t.Errorf("action = %q, want general_conversation fallback", got.Action)
	}
	if !got.Metadata.NeedsClarification {
		t.Error("fallback intent should request clarification")
	}
}

func TestClassifyGeneralModelDown(t *testing.T) {
	provider := &fakeLLM{err: errors.New("connection refused")}
	c := NewClassifier(provider, examples.NewStore(10), testLogger())
	state := conversation.NewState("user-1", "session-1")

	if _, err := c.ClassifyGeneral(context.Background(), "hello", state); err == nil {
		t.Error("unreachable model should surface an error to the cascade")
	}
}

func TestExamplesInjectedIntoPrompt(t *testing.T) {
	store := examples.NewStore(10)
	store.Record(examples.DomainChart, examples.InteractionExample{
		Query: "make a pie chart of deals", Intent: ActionCreateChart, Success: true,
	})
	provider := &fakeLLM{response: `{"action": "create_chart", "confidence": 0.9}`}
	c := NewClassifier(provider, store, testLogger())
	state := conversation.NewState("user-1", "session-1")

	if _, err := c.Classify(context.Background(), "another pie chart please", state); err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("prompts = %d, want 1", len(provider.prompts))
	}
	if !strings.Contains(provider.prompts[0], "make a pie chart of deals") {
		t.Error("retrieved example should be injected into the structured prompt")
	}
}
