package examples

import (
	"fmt"
	"testing"
	"time"
)

func TestRetrieveRanksByKeywordOverlap(t *testing.T) {
	s := NewStore(10)

	s.Record(DomainChart, InteractionExample{Query: "make a pie chart of deals", Intent: "create_chart", Success: true})
	s.Record(DomainChart, InteractionExample{Query: "show a chart", Intent: "view_chart", Success: true})
	s.Record(DomainChart, InteractionExample{Query: "what is the weather", Intent: "general_conversation", Success: true})

	got := s.Retrieve("create a pie chart", DomainChart)

	if len(got) != 2 {
		t.Fatalf("retrieved %d examples, want 2", len(got))
	}
	// Two shared keywords (pie, chart) beats one (chart)
	if got[0].Query != "make a pie chart of deals" {
		t.Errorf("top example = %q, want the two-keyword match first", got[0].Query)
	}
}

func TestRetrieveNoKeywordMatch(t *testing.T) {
	s := NewStore(10)
	s.Record(DomainChart, InteractionExample{Query: "make a chart", Intent: "create_chart", Success: true})

	if got := s.Retrieve("completely unrelated request", DomainChart); len(got) != 0 {
		t.Errorf("retrieved %d examples for keyword-free query, want 0", len(got))
	}
}

func TestRecordEvictsOldestPastCap(t *testing.T) {
	s := NewStore(3)

	for i := 0; i < 5; i++ {
		s.Record(DomainCRM, InteractionExample{
			Query:     fmt.Sprintf("update contact number %d", i),
			Intent:    "update_contact",
			Success:   true,
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	if s.Len(DomainCRM) != 3 {
		t.Fatalf("corpus size = %d, want cap of 3", s.Len(DomainCRM))
	}

	got := s.Retrieve("update contact", DomainCRM)
	for _, ex := range got {
		if ex.Query == "update contact number 0" || ex.Query == "update contact number 1" {
			t.Errorf("oldest examples should have been evicted, found %q", ex.Query)
		}
	}
}

func TestDomainForAction(t *testing.T) {
	tests := []struct {
		action string
		want   Domain
	}{
		{"create_chart", DomainChart},
		{"analyze_data", DomainAnalysis},
		{"update_contact", DomainCRM},
		{"view_data", DomainCRM},
		{"general_conversation", DomainGeneral},
		{"send_message", DomainGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			if got := DomainForAction(tt.action); got != tt.want {
				t.Errorf("DomainForAction(%q) = %v, want %v", tt.action, got, tt.want)
			}
		})
	}
}
