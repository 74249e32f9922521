package pipeline

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"crm-assistant-be/pkg/ai/cache"
	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/examples"
	"crm-assistant-be/pkg/ai/intent"
	"crm-assistant-be/pkg/ai/learning"
	"crm-assistant-be/pkg/ai/recovery"
	"crm-assistant-be/pkg/ai/reference"
	"crm-assistant-be/pkg/ai/router"
)

const (
	defaultStageTimeout     = 10 * time.Second
	defaultUnderstandingTTL = 10 * time.Minute
	acceptConfidence        = 0.7
)

// Cascade stage labels, reported on every response
const (
	StageEdgeFilter    = "edge_filter"
	StageReference     = "reference"
	StagePhraseCache   = "phrase_cache"
	StageStructured    = "structured"
	StageCachedGeneral = "cached_general"
	StageGeneral       = "general"
	StageRecovery      = "recovery"
	StageFallback      = "fallback"
)

var apologySuggestions = []string{
	"Show me my contacts",
	"View my open deals",
	"Create a chart of my pipeline",
}

const apologyMessage = "I'm sorry, I couldn't work out what you'd like to do. Could you try rephrasing it?"

// Response is the orchestrator's final product for one message
type Response struct {
	Message            string         `json:"message"`
	Intent             *intent.Intent `json:"intent,omitempty"`
	Data               interface{}    `json:"data,omitempty"`
	HasData            bool           `json:"has_data"`
	Suggestions        []string       `json:"suggestions,omitempty"`
	NeedsClarification bool           `json:"needs_clarification,omitempty"`
	Stage              string         `json:"stage"`
}

// Orchestrator runs the resolution cascade: edge filter, phrase cache,
// structured classification, cached general, fresh general. Stages
// run under real context deadlines; a timed-out stage is a failed
// stage and the cascade falls through to the next. Every stage returns
// (result, error) and the orchestrator folds over those pairs; nothing
// here panics or rethrows.
type Orchestrator struct {
	resolver      *reference.Resolver
	classifier    *intent.Classifier
	manager       *conversation.Manager
	understanding *cache.Cache
	edgeFilter    *recovery.EdgeFilter
	router        *router.Router
	learning      *learning.Engine
	examples      *examples.Store
	logger        *log.Logger

	stageTimeout     time.Duration
	understandingTTL time.Duration

	streakMu     sync.Mutex
	errorStreaks map[string]int
}

// Option configures the orchestrator
type Option func(*Orchestrator)

func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stageTimeout = d }
}

func WithUnderstandingTTL(d time.Duration) Option {
	return func(o *Orchestrator) { o.understandingTTL = d }
}

func NewOrchestrator(
	resolver *reference.Resolver,
	classifier *intent.Classifier,
	manager *conversation.Manager,
	understanding *cache.Cache,
	dispatch *router.Router,
	learningEngine *learning.Engine,
	exampleStore *examples.Store,
	logger *log.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		resolver:         resolver,
		classifier:       classifier,
		manager:          manager,
		understanding:    understanding,
		edgeFilter:       recovery.NewEdgeFilter(),
		router:           dispatch,
		learning:         learningEngine,
		examples:         exampleStore,
		logger:           logger,
		stageTimeout:     defaultStageTimeout,
		understandingTTL: defaultUnderstandingTTL,
		errorStreaks:     map[string]int{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Resolve runs one message through the full cascade and returns the
// final personalized response. It never returns an error: every
// failure path lands on a user-facing response.
func (o *Orchestrator) Resolve(ctx context.Context, userID, sessionID, message string) *Response {
	state := o.manager.Get(userID, sessionID)

	if resp := o.edgeFilter.Apply(recovery.Input{
		Message:     message,
		UserID:      userID,
		ErrorStreak: o.streak(userID),
	}); resp != nil {
		o.logger.Printf("[PIPELINE] Edge filter handled message (%s)", resp.Code)
		return &Response{
			Message:     resp.Message,
			Suggestions: resp.Suggestions,
			Stage:       StageEdgeFilter,
		}
	}

	// Ambiguity short-circuits before any classification: the user must
	// pick a record first
	refResult := o.resolveReferences(ctx, userID, message)
	if refResult != nil && refResult.NeedsClarification {
		o.logger.Printf("[PIPELINE] Reference ambiguity, asking for clarification")
		return &Response{
			Message:            refResult.ClarificationMessage,
			Suggestions:        state.Suggestions,
			NeedsClarification: true,
			Stage:              StageReference,
		}
	}

	resolved, stage := o.resolveIntent(ctx, message, state)
	if resolved == nil {
		o.bumpStreak(userID)
		return &Response{
			Message:     apologyMessage,
			Suggestions: apologySuggestions,
			Stage:       StageFallback,
		}
	}
	o.logger.Printf("[PIPELINE] Resolved %s via %s (confidence %.2f)", resolved.Action, stage, resolved.Confidence)

	mergeResolvedReferences(resolved, refResult)

	// A low-confidence intent must never reach a mutation handler;
	// ask the clarification question instead. General conversation is
	// exempt because its handler surfaces the question itself.
	if resolved.Metadata.NeedsClarification && resolved.Action != intent.ActionGeneralConversation {
		o.logger.Printf("[PIPELINE] %s needs clarification before dispatch", resolved.Action)
		o.recordOutcome(ctx, userID, sessionID, message, resolved, stage, resolved.Metadata.ClarificationQuestion)
		return &Response{
			Message:            resolved.Metadata.ClarificationQuestion,
			Intent:             resolved,
			Suggestions:        state.Suggestions,
			NeedsClarification: true,
			Stage:              stage,
		}
	}

	rctx := &router.RequestContext{UserID: userID, SessionID: sessionID, State: state}
	handled, err := o.router.Dispatch(ctx, resolved, rctx)
	if err != nil {
		handled, err = o.retryDispatch(ctx, resolved, rctx, err)
	}
	if err != nil {
		o.bumpStreak(userID)
		descriptor := recovery.Classify(err)
		if descriptor.Retryable {
			limit := recovery.RetryLimitResponse()
			o.logger.Printf("[PIPELINE] Retry budget exhausted for %s: %v", resolved.Action, err)
			return &Response{
				Message:     limit.Message,
				Intent:      resolved,
				Suggestions: limit.Suggestions,
				Stage:       StageRecovery,
			}
		}
		o.logger.Printf("[PIPELINE] Handler failed (%s): %v", descriptor.Code, err)
		return &Response{
			Message:     descriptor.UserMessage,
			Intent:      resolved,
			Suggestions: descriptor.Suggestions,
			Stage:       StageRecovery,
		}
	}

	o.clearStreak(userID)

	// A confirmed pending action is spent once its handler ran; only a
	// handler that just parked a new confirmation keeps it alive
	if !handled.NeedsConfirmation {
		if pending := state.CurrentContext.PendingConfirmation; pending != nil && pending.Action == resolved.Action {
			state.ClearPendingConfirmation()
		}
	}

	personalized := handled.Content
	if o.learning != nil {
		personalized = o.learning.ApplyPersonalization(handled.Content, o.learning.Preferences(userID))
	}

	event := handled.StateEvent
	if event == "" {
		event = resolved.Action
	}
	state.Update(message, event)

	o.recordOutcome(ctx, userID, sessionID, message, resolved, stage, personalized)

	return &Response{
		Message:            personalized,
		Intent:             resolved,
		Data:               handled.Data,
		HasData:            handled.HasData,
		Suggestions:        state.Suggestions,
		NeedsClarification: resolved.Metadata.NeedsClarification || handled.NeedsConfirmation,
		Stage:              stage,
	}
}

// retryDispatch re-attempts a failed dispatch within the matched
// descriptor's budget. It returns the first success, or the last error
// once the budget is spent.
func (o *Orchestrator) retryDispatch(ctx context.Context, resolved *intent.Intent, rctx *router.RequestContext, lastErr error) (*router.HandlerResult, error) {
	retries := &recovery.RetryCounter{}
	descriptor := recovery.Classify(lastErr)
	for retries.Allow(descriptor) {
		o.logger.Printf("[PIPELINE] Retrying %s after %s (attempt %d)", resolved.Action, descriptor.Code, retries.Attempts())
		handled, err := o.router.Dispatch(ctx, resolved, rctx)
		if err == nil {
			return handled, nil
		}
		lastErr = err
		descriptor = recovery.Classify(err)
	}
	return nil, lastErr
}

// entityKeyByType places a resolved reference under the entity key its
// record type implies when the classifier extracted nothing for it
var entityKeyByType = map[reference.EntityType]string{
	reference.EntityContact: "contact_name",
	reference.EntityAccount: "account_name",
	reference.EntityDeal:    "deal_name",
}

// mergeResolvedReferences substitutes uniquely resolved record names
// into the intent's entities, so handlers act on the matched record
// rather than the raw mention
func mergeResolvedReferences(it *intent.Intent, refs *reference.Result) {
	if refs == nil {
		return
	}
	for _, ref := range refs.References {
		if ref.ResolvedEntity == nil {
			continue
		}
		substituted := false
		for key, value := range it.Entities {
			if strings.EqualFold(value, ref.Value) {
				it.Entities[key] = ref.ResolvedEntity.Value
				substituted = true
			}
		}
		if !substituted {
			if key := entityKeyByType[ref.ResolvedEntity.Type]; key != "" && it.Entities[key] == "" {
				it.Entities[key] = ref.ResolvedEntity.Value
			}
		}
	}
}

// resolveReferences runs reference resolution under a stage deadline.
// Failures degrade to nil; resolution troubles never block the cascade.
func (o *Orchestrator) resolveReferences(ctx context.Context, userID, message string) *reference.Result {
	tctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	result, err := o.resolver.Resolve(tctx, userID, message)
	if err != nil {
		o.logger.Printf("[PIPELINE] Reference resolution failed: %v", err)
		return nil
	}
	return result
}

// resolveIntent walks the cascade stages in strict order. Count
// queries skip both cache stages so their answers always reflect
// current data.
func (o *Orchestrator) resolveIntent(ctx context.Context, message string, state *conversation.State) (*intent.Intent, string) {
	countQuery := isCountQuery(message)

	if !countQuery {
		if it := lookupPhrase(message); it != nil {
			return it, StagePhraseCache
		}
	}

	if it := o.classifyStructured(ctx, message, state); it != nil {
		return it, StageStructured
	}

	cacheKey := cache.UnderstandingKey(message, o.contextFingerprint(state))
	if !countQuery {
		if cached, ok := o.understanding.Get(cacheKey); ok {
			if it, ok := cached.(*intent.Intent); ok {
				copied := *it
				copied.OriginalMessage = message
				return intent.Normalize(&copied), StageCachedGeneral
			}
		}
	}

	it := o.classifyGeneral(ctx, message, state)
	if it == nil {
		return nil, ""
	}
	if !countQuery {
		o.understanding.SetWithTTL(cacheKey, it, o.understandingTTL)
	}
	return it, StageGeneral
}

func (o *Orchestrator) classifyStructured(ctx context.Context, message string, state *conversation.State) *intent.Intent {
	tctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	it, err := o.classifier.Classify(tctx, message, state)
	if err != nil {
		o.logger.Printf("[PIPELINE] Structured stage failed: %v", err)
		return nil
	}
	if it.Confidence <= acceptConfidence {
		o.logger.Printf("[PIPELINE] Structured confidence %.2f below gate, falling through", it.Confidence)
		return nil
	}
	return it
}

func (o *Orchestrator) classifyGeneral(ctx context.Context, message string, state *conversation.State) *intent.Intent {
	tctx, cancel := context.WithTimeout(ctx, o.stageTimeout)
	defer cancel()

	it, err := o.classifier.ClassifyGeneral(tctx, message, state)
	if err != nil {
		o.logger.Printf("[PIPELINE] General stage failed: %v", err)
		return nil
	}
	return it
}

// contextFingerprint keys the understanding cache on the parts of
// state that change what a message means: the phase and the active
// topic. The last action is deliberately excluded so repeating a
// message within the same phase hits the cache.
func (o *Orchestrator) contextFingerprint(state *conversation.State) string {
	topic := ""
	if t := state.CurrentContext.ActiveTopic; t != nil {
		topic = t.Type + ":" + t.DataType + ":" + t.Dimension + ":" + t.ChartType
	}
	return cache.Fingerprint(string(state.CurrentContext.Phase), topic)
}

// recordOutcome feeds the successful resolution back into the example
// corpus and the learning engine
func (o *Orchestrator) recordOutcome(ctx context.Context, userID, sessionID, message string, resolved *intent.Intent, stage, responseText string) {
	if o.examples != nil && !resolved.Metadata.NeedsClarification {
		o.examples.Record(examples.DomainForAction(resolved.Action), examples.InteractionExample{
			Query:    message,
			Intent:   resolved.Action,
			Entities: resolved.Entities,
			Success:  true,
		})
	}

	if o.learning != nil {
		if !resolved.Metadata.NeedsClarification {
			o.learning.ObserveEntities(userID, resolved.Entities)
		}
		o.learning.LogInteraction(ctx, learning.InteractionRecord{
			UserID:         userID,
			SessionID:      sessionID,
			Query:          message,
			Action:         resolved.Action,
			Confidence:     resolved.Confidence,
			Success:        !resolved.Metadata.NeedsClarification,
			Stage:          stage,
			ResponseLength: len(responseText),
		})
	}
}

func (o *Orchestrator) streak(userID string) int {
	o.streakMu.Lock()
	defer o.streakMu.Unlock()
	return o.errorStreaks[userID]
}

func (o *Orchestrator) bumpStreak(userID string) {
	o.streakMu.Lock()
	defer o.streakMu.Unlock()
	o.errorStreaks[userID]++
}

func (o *Orchestrator) clearStreak(userID string) {
	o.streakMu.Lock()
	defer o.streakMu.Unlock()
	delete(o.errorStreaks, userID)
}
