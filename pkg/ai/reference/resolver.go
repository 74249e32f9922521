package reference

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"crm-assistant-be/pkg/llm"
	"crm-assistant-be/pkg/store"

	gocache "github.com/patrickmn/go-cache"
)

// pronounVocabulary is the fixed set scanned for deictic references
var pronounVocabulary = []string{"him", "her", "them", "it", "this", "that"}

const (
	lowConfidenceThreshold = 0.8 // entities below this become references
	minMatchScore          = 0.5
	maxMatches             = 5
	snapshotTTL            = 5 * time.Minute
)

// Resolver turns raw text into typed entities and resolves references
// against a snapshot of the user's records. Extraction failures
// degrade to an empty entity list; Resolve never surfaces an LLM error.
type Resolver struct {
	llmProvider llm.LLMProvider
	records     store.RecordStore
	snapshots   *gocache.Cache
	logger      *log.Logger
}

func NewResolver(llmProvider llm.LLMProvider, records store.RecordStore, logger *log.Logger) *Resolver {
	// Snapshot cache keeps record-name lookups cheap across turns;
	// expired entries are purged in the background by go-cache
	return &Resolver{
		llmProvider: llmProvider,
		records:     records,
		snapshots:   gocache.New(snapshotTTL, 10*time.Minute),
		logger:      logger,
	}
}

// Resolve extracts entities from the message and builds contextual
// references for pronouns and low-confidence entities. If any
// reference has more than one surviving candidate, the result carries
// a clarification request and the caller must stop the pipeline for
// this turn.
func (r *Resolver) Resolve(ctx context.Context, userID, message string) (*Result, error) {
	snapshot, err := r.recordSnapshot(ctx, userID)
	if err != nil {
		r.logger.Printf("[REFERENCE] Snapshot load failed, resolving without records: %v", err)
		snapshot = nil
	}

	entities := r.extractEntities(ctx, userID, message, snapshot)

	result := &Result{
		Entities:   entities,
		References: []ContextualReference{},
	}

	// Pronoun scan
	lowered := strings.ToLower(message)
	words := strings.Fields(lowered)
	for _, pronoun := range pronounVocabulary {
		for _, w := range words {
			if strings.Trim(w, ".,!?'\"") == pronoun {
				result.References = append(result.References, ContextualReference{
					Type:            ReferencePronoun,
					Value:           pronoun,
					PossibleMatches: []Match{},
				})
				break
			}
		}
	}

	// Low-confidence named entities become lookup references
	for i := range entities {
		entity := &entities[i]
		if entity.Confidence >= lowConfidenceThreshold {
			continue
		}
		if !isRecordEntity(entity.Type) {
			continue
		}

		matches := scoreCandidates(entity.Value, snapshot)
		ref := ContextualReference{
			Type:            ReferenceName,
			Value:           entity.Value,
			PossibleMatches: matches,
		}
		if len(matches) == 1 {
			resolved := *entity
			resolved.Value = matches[0].Name
			resolved.Confidence = matches[0].Confidence
			ref.ResolvedEntity = &resolved
		} else if len(matches) > 1 {
			ref.Type = ReferenceAmbiguous
		}
		result.References = append(result.References, ref)
	}

	if msg := clarificationMessage(result.References); msg != "" {
		result.NeedsClarification = true
		result.ClarificationMessage = msg
	}

	return result, nil
}

// recordSnapshot loads (and caches) the user's records across the
// kinds that can be referred to by name
func (r *Resolver) recordSnapshot(ctx context.Context, userID string) ([]store.Record, error) {
	if cached, found := r.snapshots.Get(userID); found {
		return cached.([]store.Record), nil
	}

	teamID, err := r.records.ResolveTeamID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve team: %w", err)
	}

	kinds := []store.RecordKind{store.KindContact, store.KindAccount, store.KindDeal}
	snapshot := make([]store.Record, 0)
	for _, kind := range kinds {
		records, err := r.records.ListByKind(ctx, teamID, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		snapshot = append(snapshot, records...)
	}

	r.snapshots.Set(userID, snapshot, gocache.DefaultExpiration)
	return snapshot, nil
}

// InvalidateSnapshot drops the cached records for a user, e.g. after
// a record mutation elsewhere in the request
func (r *Resolver) InvalidateSnapshot(userID string) {
	r.snapshots.Delete(userID)
}

// isRecordEntity reports whether an entity type can name a record
func isRecordEntity(t EntityType) bool {
	switch t {
	case EntityContact, EntityAccount, EntityDeal, EntityCompany:
		return true
	}
	return false
}

// scoreCandidates ranks every record against the referenced value:
// exact full name 1.0, exact first name 0.9, exact last name 0.8,
// substring containment 0.7, token overlap 0.6. Scores below 0.5 are
// discarded; survivors are sorted descending and capped at 5.
func scoreCandidates(value string, snapshot []store.Record) []Match {
	matches := make([]Match, 0)
	for _, record := range snapshot {
		score := scoreCandidate(value, record)
		if score < minMatchScore {
			continue
		}
		matches = append(matches, Match{
			ID:         record.ID,
			Name:       record.Name,
			Type:       string(record.Kind),
			Confidence: score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	if len(matches) > maxMatches {
		matches = matches[:maxMatches]
	}
	return matches
}

func scoreCandidate(value string, record store.Record) float64 {
	v := strings.ToLower(strings.TrimSpace(value))
	name := strings.ToLower(record.Name)

	if v == "" || name == "" {
		return 0
	}
	if v == name {
		return 1.0
	}
	if v == strings.ToLower(record.FirstName()) {
		return 0.9
	}
	if v == strings.ToLower(record.LastName()) {
		return 0.8
	}
	if strings.Contains(name, v) || strings.Contains(v, name) {
		return 0.7
	}

	nameTokens := strings.Fields(name)
	for _, vt := range strings.Fields(v) {
		for _, nt := range nameTokens {
			if vt == nt {
				return 0.6
			}
		}
	}
	return 0
}

// clarificationMessage enumerates the options for every ambiguous
// reference, or returns "" when nothing needs clarifying
func clarificationMessage(refs []ContextualReference) string {
	var parts []string
	for _, ref := range refs {
		if len(ref.PossibleMatches) <= 1 {
			continue
		}
		names := make([]string, len(ref.PossibleMatches))
		for i, m := range ref.PossibleMatches {
			names[i] = m.Name
		}
		parts = append(parts, fmt.Sprintf("For %q did you mean %s?", ref.Value, strings.Join(names, " or ")))
	}
	if len(parts) == 0 {
		return ""
	}
	return "I found more than one match. " + strings.Join(parts, " ")
}
