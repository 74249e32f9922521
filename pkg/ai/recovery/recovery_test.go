package recovery

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestEdgeFilterRules(t *testing.T) {
	f := NewEdgeFilter()

	tests := []struct {
		name     string
		in       Input
		wantCode string
	}{
		{"empty", Input{Message: "   "}, "EMPTY_MESSAGE"},
		{"oversized", Input{Message: strings.Repeat("x", maxMessageLen+1)}, "OVERSIZED_MESSAGE"},
		{"greeting", Input{Message: "Hello!"}, "GREETING"},
		{"greeting phrase", Input{Message: "good morning"}, "GREETING"},
		{"multi question", Input{Message: "who owns this deal? and when does it close?"}, "MULTI_QUESTION"},
		{"bare common name", Input{Message: "john"}, "AMBIGUOUS_NAME"},
		{"oversized dataset", Input{Message: "show everything", DatasetSize: 5000}, "OVERSIZED_DATASET"},
		{"memory pressure", Input{Message: "show deals", MemoryPressure: true}, "MEMORY_PRESSURE"},
		{"error streak", Input{Message: "show deals", ErrorStreak: 3}, "ERROR_STREAK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Apply(tt.in)
			if got == nil {
				t.Fatal("expected a rule to fire")
			}
			if got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestEdgeFilterPassesNormalMessages(t *testing.T) {
	f := NewEdgeFilter()

	for _, msg := range []string{
		"show me contacts",
		"email john about the renewal", // embedded name goes to the resolver
		"make it a pie chart",
		"update John Smith's email",
	} {
		if got := f.Apply(Input{Message: msg}); got != nil {
			t.Errorf("message %q unexpectedly matched rule %s", msg, got.Code)
		}
	}
}

func TestEdgeFilterPriorityOrder(t *testing.T) {
	f := NewEdgeFilter()

	// Empty outranks everything even when other signals are set
	got := f.Apply(Input{Message: "", MemoryPressure: true, ErrorStreak: 5})
	if got == nil || got.Code != "EMPTY_MESSAGE" {
		t.Errorf("got %+v, want the empty rule first", got)
	}
}

func TestClassifyErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err  error
		want Category
	}{
		{errors.New("dial tcp: connection refused"), CategoryConnection},
		{errors.New("context deadline exceeded"), CategoryConnection},
		{errors.New("server returned 401 Unauthorized"), CategoryAuth},
		{errors.New("rate limit exceeded for model"), CategoryRateLimit},
		{errors.New("missing required field data_type"), CategoryValidation},
		{errors.New("no JSON object found in response"), CategoryModelFailure},
		{errors.New("something completely unexpected"), CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if got := Classify(tt.err); got.Category != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got.Category, tt.want)
			}
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Mentions both a timeout and a rate limit; the connection pattern
	// is ordered first
	got := Classify(fmt.Errorf("timeout while checking rate limit"))
	if got.Category != CategoryConnection {
		t.Errorf("category = %s, want connection (first pattern)", got.Category)
	}
}

func TestRetryCounterBudget(t *testing.T) {
	d := Classify(errors.New("connection refused"))
	if !d.Retryable || d.MaxRetries != 2 {
		t.Fatalf("descriptor = %+v, want retryable with ceiling 2", d)
	}

	var c RetryCounter
	if !c.Allow(d) || !c.Allow(d) {
		t.Fatal("first two retries should be allowed")
	}
	if c.Allow(d) {
		t.Error("third retry exceeds the ceiling")
	}
	if c.Attempts() != 2 {
		t.Errorf("attempts = %d, want 2", c.Attempts())
	}
}

func TestRetryCounterNonRetryable(t *testing.T) {
	d := Classify(errors.New("403 Forbidden"))

	var c RetryCounter
	if c.Allow(d) {
		t.Error("non-retryable descriptors must never allow retries")
	}
}
