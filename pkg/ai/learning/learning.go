package learning

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"crm-assistant-be/pkg/events"
)

const (
	maxLogPerUser    = 100
	analysisMinCount = 5
	frequentActionsN = 3
)

// InteractionRecord is one resolved message with its outcome
type InteractionRecord struct {
	UserID         string
	SessionID      string
	Query          string
	Action         string
	Confidence     float64
	Success        bool
	Stage          string
	ResponseLength int
	Timestamp      time.Time
}

// Patterns is the derived view over a user's retained interactions.
// It is recomputed from scratch on each analysis pass, never updated
// incrementally.
type Patterns struct {
	FrequentActions   []string
	HourHistogram     [24]int
	AvgResponseLength float64
	SuccessRate       float64
	SampleSize        int
}

// Engine owns the interaction logs, derived patterns and user
// preferences. It is dependency-injected and mutex-guarded; nothing
// here is a package singleton.
type Engine struct {
	mu        sync.Mutex
	logs      map[string][]InteractionRecord
	patterns  map[string]*Patterns
	prefs     map[string]map[Category]*Preference
	publisher events.IPublisher
	logger    *log.Logger
	now       func() time.Time
}

func NewEngine(publisher events.IPublisher, logger *log.Logger) *Engine {
	return &Engine{
		logs:      map[string][]InteractionRecord{},
		patterns:  map[string]*Patterns{},
		prefs:     map[string]map[Category]*Preference{},
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SetClock overrides the time source for tests
func (e *Engine) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// LogInteraction appends to the user's bounded log, publishes the
// interaction event, and from the fifth interaction onward recomputes
// the user's patterns over the retained window. Each analysis pass
// also feeds the derived length signal back into the preference set.
func (e *Engine) LogInteraction(ctx context.Context, rec InteractionRecord) {
	e.mu.Lock()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = e.now()
	}

	records := append(e.logs[rec.UserID], rec)
	if len(records) > maxLogPerUser {
		records = records[len(records)-maxLogPerUser:]
	}
	e.logs[rec.UserID] = records

	var lengthSignal string
	if len(records) >= analysisMinCount {
		patterns := analyze(records)
		e.patterns[rec.UserID] = patterns
		lengthSignal = responseLengthSignal(patterns.AvgResponseLength)
	}
	e.mu.Unlock()

	if lengthSignal != "" {
		e.UpdatePreference(rec.UserID, CategoryResponseLength, lengthSignal, derivedConfidence)
	}

	if e.publisher != nil {
		evt := events.InteractionEvent{
			UserID:     rec.UserID,
			SessionID:  rec.SessionID,
			Action:     rec.Action,
			Confidence: rec.Confidence,
			Success:    rec.Success,
			Stage:      rec.Stage,
			OccurredAt: rec.Timestamp,
		}
		// Auxiliary path: a dead bus never fails the request
		if err := e.publisher.Publish(ctx, evt); err != nil {
			e.logger.Printf("[LEARNING] Failed to publish interaction event: %v", err)
		}
	}
}

// Patterns returns the last computed analysis for the user, or nil
// before enough interactions have accumulated
func (e *Engine) Patterns(userID string) *Patterns {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.patterns[userID]
}

// InteractionCount reports the retained log size for the user
func (e *Engine) InteractionCount(userID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.logs[userID])
}

func analyze(records []InteractionRecord) *Patterns {
	p := &Patterns{SampleSize: len(records)}

	actionCounts := map[string]int{}
	totalLength := 0
	successes := 0
	for _, rec := range records {
		actionCounts[rec.Action]++
		p.HourHistogram[rec.Timestamp.Hour()]++
		totalLength += rec.ResponseLength
		if rec.Success {
			successes++
		}
	}

	type actionCount struct {
		action string
		count  int
	}
	counts := make([]actionCount, 0, len(actionCounts))
	for action, count := range actionCounts {
		counts = append(counts, actionCount{action, count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].count != counts[j].count {
			return counts[i].count > counts[j].count
		}
		return counts[i].action < counts[j].action
	})
	for i := 0; i < len(counts) && i < frequentActionsN; i++ {
		p.FrequentActions = append(p.FrequentActions, counts[i].action)
	}

	p.AvgResponseLength = float64(totalLength) / float64(len(records))
	p.SuccessRate = float64(successes) / float64(len(records))
	return p
}
