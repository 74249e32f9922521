package reference

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"crm-assistant-be/pkg/llm"
	"crm-assistant-be/pkg/store"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (*llm.Completion, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.response}, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*llm.Completion, error) {
	return f.Chat(ctx, nil, opts...)
}

type fakeRecordStore struct {
	records []store.Record
	err     error
}

func (f *fakeRecordStore) ListByKind(ctx context.Context, teamID string, kind store.RecordKind) ([]store.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]store.Record, 0)
	for _, r := range f.records {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) ResolveTeamID(ctx context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "team-1", nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func twoJohns() *fakeRecordStore {
	return &fakeRecordStore{records: []store.Record{
		{ID: "c1", Kind: store.KindContact, Name: "John Smith"},
		{ID: "c2", Kind: store.KindContact, Name: "John Doe"},
		{ID: "c3", Kind: store.KindContact, Name: "Alice Brown"},
	}}
}

func TestScoreCandidate(t *testing.T) {
	record := store.Record{ID: "c1", Kind: store.KindContact, Name: "John Smith"}

	tests := []struct {
		value string
		want  float64
	}{
		{"John Smith", 1.0},
		{"john smith", 1.0},
		{"John", 0.9},
		{"Smith", 0.8},
		{"ohn Smi", 0.7},
		{"John Brown", 0.6}, // shared token only
		{"Brown", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			if got := scoreCandidate(tt.value, record); got != tt.want {
				t.Errorf("scoreCandidate(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestScoreCandidatesDiscardsAndCaps(t *testing.T) {
	snapshot := []store.Record{
		{ID: "1", Kind: store.KindContact, Name: "John Smith"},
		{ID: "2", Kind: store.KindContact, Name: "John Doe"},
		{ID: "3", Kind: store.KindContact, Name: "John Brown"},
		{ID: "4", Kind: store.KindContact, Name: "John Black"},
		{ID: "5", Kind: store.KindContact, Name: "John White"},
		{ID: "6", Kind: store.KindContact, Name: "John Green"},
		{ID: "7", Kind: store.KindContact, Name: "Alice Brown"},
	}

	matches := scoreCandidates("john", snapshot)

	if len(matches) != 5 {
		t.Fatalf("matches = %d, want capped at 5", len(matches))
	}
	for _, m := range matches {
		if m.Name == "Alice Brown" {
			t.Error("sub-threshold candidate should be discarded")
		}
		if m.Confidence < 0.5 {
			t.Errorf("match %q below threshold: %v", m.Name, m.Confidence)
		}
	}
}

func TestResolveAmbiguousNameShortCircuits(t *testing.T) {
	provider := &fakeLLM{response: `[{"type": "contact", "value": "john", "confidence": 0.6}]`}
	r := NewResolver(provider, twoJohns(), testLogger())

	result, err := r.Resolve(context.Background(), "user-1", "email john")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if !result.NeedsClarification {
		t.Fatal("two Johns should force clarification")
	}

	var ref *ContextualReference
	for i := range result.References {
		if result.References[i].Value == "john" {
			ref = &result.References[i]
		}
	}
	if ref == nil {
		t.Fatal("expected a reference for john")
	}
	if len(ref.PossibleMatches) != 2 {
		t.Fatalf("possible matches = %d, want 2", len(ref.PossibleMatches))
	}
	if ref.Type != ReferenceAmbiguous {
		t.Errorf("reference type = %v, want ambiguous", ref.Type)
	}

	// Both full names must appear in the clarification text
	for _, name := range []string{"John Smith", "John Doe"} {
		if !strings.Contains(result.ClarificationMessage, name) {
			t.Errorf("clarification %q missing option %q", result.ClarificationMessage, name)
		}
	}
}

func TestResolveUniqueMatchResolvesEntity(t *testing.T) {
	provider := &fakeLLM{response: `[{"type": "contact", "value": "alice", "confidence": 0.6}]`}
	r := NewResolver(provider, twoJohns(), testLogger())

	result, err := r.Resolve(context.Background(), "user-1", "email alice")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	if result.NeedsClarification {
		t.Error("unique match should not need clarification")
	}
	if len(result.References) != 1 {
		t.Fatalf("references = %d, want 1", len(result.References))
	}
	resolved := result.References[0].ResolvedEntity
	if resolved == nil {
		t.Fatal("unique match should resolve the entity")
	}
	if resolved.Value != "Alice Brown" {
		t.Errorf("resolved value = %q, want Alice Brown", resolved.Value)
	}
}

func TestResolveHighConfidenceEntityNotReferenced(t *testing.T) {
	provider := &fakeLLM{response: `[{"type": "contact", "value": "John Smith", "confidence": 0.95}]`}
	r := NewResolver(provider, twoJohns(), testLogger())

	result, _ := r.Resolve(context.Background(), "user-1", "update John Smith's phone")

	if len(result.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(result.Entities))
	}
	for _, ref := range result.References {
		if ref.Type == ReferenceName || ref.Type == ReferenceAmbiguous {
			t.Error("high-confidence entity should not become a lookup reference")
		}
	}
}

func TestResolvePronounDetection(t *testing.T) {
	provider := &fakeLLM{response: `[]`}
	r := NewResolver(provider, twoJohns(), testLogger())

	result, _ := r.Resolve(context.Background(), "user-1", "make it a pie chart")

	found := false
	for _, ref := range result.References {
		if ref.Type == ReferencePronoun && ref.Value == "it" {
			found = true
		}
	}
	if !found {
		t.Error("pronoun 'it' should be detected as a reference")
	}
}

func TestResolveDegradesOnExtractionFailure(t *testing.T) {
	provider := &fakeLLM{err: errors.New("model unavailable")}
	r := NewResolver(provider, twoJohns(), testLogger())

	result, err := r.Resolve(context.Background(), "user-1", "email john")
	if err != nil {
		t.Fatalf("extraction failure must not propagate, got %v", err)
	}
	if len(result.Entities) != 0 {
		t.Errorf("entities = %d, want empty on failure", len(result.Entities))
	}
}

func TestResolveDegradesOnGarbageOutput(t *testing.T) {
	provider := &fakeLLM{response: "I think the user wants contacts, probably?"}
	r := NewResolver(provider, twoJohns(), testLogger())

	result, err := r.Resolve(context.Background(), "user-1", "email john")
	if err != nil {
		t.Fatalf("garbage output must not propagate, got %v", err)
	}
	if len(result.Entities) != 0 {
		t.Errorf("entities = %d, want empty on garbage", len(result.Entities))
	}
}

func TestSnapshotCached(t *testing.T) {
	provider := &fakeLLM{response: `[]`}
	records := twoJohns()
	r := NewResolver(provider, records, testLogger())

	r.Resolve(context.Background(), "user-1", "show contacts")

	// Break the store; the cached snapshot should still serve
	records.err = errors.New("store down")
	result, err := r.Resolve(context.Background(), "user-1", "show contacts again")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if result == nil {
		t.Fatal("expected result from cached snapshot")
	}

	// After invalidation the broken store degrades to an empty snapshot
	r.InvalidateSnapshot("user-1")
	result, err = r.Resolve(context.Background(), "user-1", "show contacts once more")
	if err != nil {
		t.Fatalf("store failure must degrade, got %v", err)
	}
}
