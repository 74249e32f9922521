package conversation

import (
	"testing"
)

func TestFreshStateStartsInExploration(t *testing.T) {
	s := NewState("user-1", "session-1")

	if s.CurrentContext.Phase != PhaseExploration {
		t.Errorf("fresh phase = %v, want exploration", s.CurrentContext.Phase)
	}
	if len(s.Suggestions) == 0 {
		t.Error("fresh state should carry exploration suggestions")
	}
}

func TestPhaseTransitions(t *testing.T) {
	tests := []struct {
		name   string
		action string
		want   Phase
	}{
		{"chart created moves to analysis", "chart_created", PhaseAnalysis},
		{"chart modified moves to modification", "chart_modified", PhaseModification},
		{"data exported moves to export", "data_exported", PhaseExport},
		{"analysis completed moves to insights", "analysis_completed", PhaseInsights},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState("user-1", "session-1")
			s.Update("some message", tt.action)
			if s.CurrentContext.Phase != tt.want {
				t.Errorf("phase after %q = %v, want %v", tt.action, s.CurrentContext.Phase, tt.want)
			}
			if len(s.Suggestions) != len(SuggestionsForPhase(tt.want)) {
				t.Error("suggestions should be regenerated for the new phase")
			}
		})
	}
}

func TestUnknownActionLeavesPhaseUnchanged(t *testing.T) {
	s := NewState("user-1", "session-1")
	s.Update("create a chart", "chart_created")
	s.Update("hmm", "some_unknown_action")

	if s.CurrentContext.Phase != PhaseAnalysis {
		t.Errorf("phase = %v, want analysis preserved across unknown action", s.CurrentContext.Phase)
	}
	if s.CurrentContext.LastAction != "some_unknown_action" {
		t.Error("last action should still be recorded")
	}
}

func TestUpdateTracksTopicsAndCount(t *testing.T) {
	s := NewState("user-1", "session-1")

	s.Update("show me my contacts and deals", "data_viewed")
	s.Update("now chart the deals", "chart_created")

	if s.Memory.InteractionCount != 2 {
		t.Errorf("interaction count = %d, want 2", s.Memory.InteractionCount)
	}

	// Newest topic first, deduplicated
	if len(s.Memory.RecentTopics) != 3 {
		t.Fatalf("recent topics = %v, want 3 distinct", s.Memory.RecentTopics)
	}
	if s.Memory.RecentTopics[2] != "contacts" {
		t.Errorf("oldest topic = %q, want contacts pushed to the back", s.Memory.RecentTopics[2])
	}
}

func TestRecentTopicsBoundedAtFive(t *testing.T) {
	s := NewState("user-1", "session-1")

	for _, msg := range []string{
		"contacts please", "my accounts", "open deals", "recent activity",
		"revenue numbers", "email campaign",
	} {
		s.Update(msg, "data_viewed")
	}

	if len(s.Memory.RecentTopics) != 5 {
		t.Errorf("recent topics length = %d, want bounded at 5", len(s.Memory.RecentTopics))
	}
	if s.Memory.RecentTopics[0] != "messaging" {
		t.Errorf("newest topic = %q, want messaging prepended", s.Memory.RecentTopics[0])
	}
}

func TestSetActiveTopicForcesAnalysis(t *testing.T) {
	s := NewState("user-1", "session-1")
	s.SetActiveTopic(&Topic{Type: "chart", DataType: "deals", Dimension: "stage", ChartType: "bar"})

	if s.CurrentContext.Phase != PhaseAnalysis {
		t.Errorf("phase = %v, want analysis after SetActiveTopic", s.CurrentContext.Phase)
	}
}

func TestIsReferringToActiveTopic(t *testing.T) {
	s := NewState("user-1", "session-1")

	if s.IsReferringToActiveTopic("make it a pie chart") {
		t.Error("no active topic: nothing to refer to")
	}

	s.SetActiveTopic(&Topic{Type: "chart", DataType: "deals", Dimension: "stage", ChartType: "bar"})

	tests := []struct {
		message string
		want    bool
	}{
		{"make it a pie chart", true},
		{"change the chart to red", true},
		{"show deals by stage", true},
		{"show me my contacts", false},
		{"hello there", false},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			if got := s.IsReferringToActiveTopic(tt.message); got != tt.want {
				t.Errorf("IsReferringToActiveTopic(%q) = %v, want %v", tt.message, got, tt.want)
			}
		})
	}
}

func TestHistoryRingBounded(t *testing.T) {
	s := NewState("user-1", "session-1")
	for i := 0; i < 30; i++ {
		s.Update("message", "data_viewed")
	}
	if len(s.Memory.History) != maxHistoryLength {
		t.Errorf("history length = %d, want %d", len(s.Memory.History), maxHistoryLength)
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()

	a := m.Get("user-1", "session-1")
	b := m.Get("user-1", "session-1")
	if a != b {
		t.Error("Get should return the same state for the same keys")
	}

	other := m.Get("user-1", "session-2")
	if a == other {
		t.Error("different sessions must not share state")
	}

	m.Reset("user-1", "session-1")
	fresh := m.Get("user-1", "session-1")
	if fresh == a {
		t.Error("Reset should discard the old state")
	}
	if fresh.CurrentContext.Phase != PhaseExploration {
		t.Error("state after reset should be fresh")
	}

	m.ResetAll()
	if m.Len() != 0 {
		t.Errorf("len after ResetAll = %d, want 0", m.Len())
	}
}
