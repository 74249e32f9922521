package router

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"crm-assistant-be/pkg/ai/cache"
	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/intent"
	"crm-assistant-be/pkg/store"
)

func testRouter() *Router {
	return New(log.New(io.Discard, "", 0))
}

func testContext() *RequestContext {
	return &RequestContext{
		UserID:    "user-1",
		SessionID: "session-1",
		State:     conversation.NewState("user-1", "session-1"),
	}
}

func TestDispatchCreateChartSetsActiveTopic(t *testing.T) {
	r := testRouter()
	rctx := testContext()

	it := intent.Normalize(&intent.Intent{
		Action:     intent.ActionCreateChart,
		Confidence: 0.9,
		Entities:   map[string]string{"data_type": "deals", "chart_type": "pie", "dimension": "stage"},
	})

	result, err := r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if result.StateEvent != "chart_created" {
		t.Errorf("state event = %q, want chart_created", result.StateEvent)
	}
	topic := rctx.State.CurrentContext.ActiveTopic
	if topic == nil || topic.ChartType != "pie" || topic.DataType != "deals" {
		t.Errorf("active topic = %+v, want pie chart of deals", topic)
	}
	if rctx.State.CurrentContext.Phase != conversation.PhaseAnalysis {
		t.Errorf("phase = %s, want analysis after topic set", rctx.State.CurrentContext.Phase)
	}
}

func TestDispatchModifyChartWithoutTopic(t *testing.T) {
	r := testRouter()
	rctx := testContext()

	it := intent.Normalize(&intent.Intent{Action: intent.ActionModifyChart, Confidence: 0.9})
	result, err := r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if result.StateEvent != "" {
		t.Error("modifying a missing chart must not emit a state event")
	}
	if result.HasData {
		t.Error("no chart should mean no data payload")
	}
}

func TestDispatchDeleteRequiresConfirmation(t *testing.T) {
	r := testRouter()
	rctx := testContext()

	it := intent.Normalize(&intent.Intent{
		Action:     intent.ActionDeleteContact,
		Confidence: 0.9,
		Entities:   map[string]string{"contact_name": "John Smith"},
	})

	// First pass parks the action
	result, err := r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if !result.NeedsConfirmation {
		t.Fatal("delete should ask for confirmation first")
	}
	pending := rctx.State.CurrentContext.PendingConfirmation
	if pending == nil || pending.Action != intent.ActionDeleteContact {
		t.Fatalf("pending = %+v, want parked delete_contact", pending)
	}

	// Second pass with the same action executes and clears the pending
	result, err = r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if result.NeedsConfirmation {
		t.Error("confirmed delete should execute")
	}
	if result.StateEvent != "record_deleted" {
		t.Errorf("state event = %q, want record_deleted", result.StateEvent)
	}
	if rctx.State.CurrentContext.PendingConfirmation != nil {
		t.Error("pending confirmation should be cleared after execution")
	}
}

func TestDispatchFollowUpDetection(t *testing.T) {
	r := testRouter()
	rctx := testContext()
	rctx.State.SetActiveTopic(&conversation.Topic{Type: "chart", DataType: "deals", ChartType: "bar"})

	it := intent.Normalize(&intent.Intent{
		Action:          intent.ActionModifyChart,
		Confidence:      0.9,
		OriginalMessage: "make it a pie chart",
		Entities:        map[string]string{"chart_type": "pie"},
	})

	if _, err := r.Dispatch(context.Background(), it, rctx); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if !rctx.FollowUp {
		t.Error("pronoun message with an active topic should be flagged as follow-up")
	}
	if rctx.State.CurrentContext.ActiveTopic.ChartType != "pie" {
		t.Error("modify should update the active topic's chart type")
	}
}

func TestDispatchUnknownActionFallsBack(t *testing.T) {
	r := testRouter()
	rctx := testContext()

	// Normalize maps unknown actions to general_conversation; simulate
	// a raw intent that bypassed it
	it := &intent.Intent{Action: "unmapped_action", Entities: map[string]string{}}

	result, err := r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("fallback should handle unknown actions, got %v", err)
	}
	if result.Type != "text" || result.Content == "" {
		t.Errorf("fallback result = %+v, want generic text", result)
	}
}

type countingRecordStore struct {
	listCalls int
	records   []store.Record
}

func (s *countingRecordStore) ListByKind(ctx context.Context, teamID string, kind store.RecordKind) ([]store.Record, error) {
	s.listCalls++
	return s.records, nil
}

func (s *countingRecordStore) ResolveTeamID(ctx context.Context, userID string) (string, error) {
	return "team-1", nil
}

func TestDataHandlerFetchesThroughCache(t *testing.T) {
	records := &countingRecordStore{records: []store.Record{
		{ID: "d1", Kind: store.KindDeal, Name: "Acme renewal"},
	}}
	fetcher := cache.NewBatchFetcher(cache.New(10, time.Minute), time.Minute)
	r := New(log.New(io.Discard, "", 0), WithDataFetcher(fetcher, records))
	rctx := testContext()

	it := intent.Normalize(&intent.Intent{
		Action:     intent.ActionViewData,
		Confidence: 0.9,
		Entities:   map[string]string{"data_type": "deals"},
	})

	result, err := r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	data, ok := result.Data.(map[string]interface{})
	if !ok || data["deals"] == nil {
		t.Fatalf("data = %+v, want fetched deals attached", result.Data)
	}
	if records.listCalls != 1 {
		t.Fatalf("list calls = %d, want 1", records.listCalls)
	}

	// Second dispatch for the same user and kind is served from cache
	if _, err := r.Dispatch(context.Background(), it, rctx); err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if records.listCalls != 1 {
		t.Errorf("list calls = %d after cached dispatch, want 1", records.listCalls)
	}
}

func TestDataHandlerWithoutFetcherStaysContentOnly(t *testing.T) {
	r := testRouter()
	rctx := testContext()

	it := intent.Normalize(&intent.Intent{
		Action:     intent.ActionViewData,
		Confidence: 0.9,
		Entities:   map[string]string{"data_type": "deals"},
	})

	result, err := r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if result.Data != nil {
		t.Errorf("data = %+v, want none without a wired fetcher", result.Data)
	}
	if result.Content == "" {
		t.Error("content-only response should still describe the data")
	}
}

func TestGeneralHandlerSurfacesClarification(t *testing.T) {
	r := testRouter()
	rctx := testContext()

	it := intent.Normalize(&intent.Intent{
		Action:     intent.ActionGeneralConversation,
		Confidence: 0.4,
		Metadata: intent.Metadata{
			NeedsClarification:    true,
			ClarificationQuestion: "Could you tell me more?",
		},
	})

	result, err := r.Dispatch(context.Background(), it, rctx)
	if err != nil {
		t.Fatalf("Dispatch returned error: %v", err)
	}
	if result.Content != "Could you tell me more?" {
		t.Errorf("content = %q, want the clarification question", result.Content)
	}
}
