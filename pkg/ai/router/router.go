package router

import (
	"context"
	"log"

	"crm-assistant-be/pkg/ai/cache"
	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/intent"
	"crm-assistant-be/pkg/store"
)

// HandlerResult is the opaque payload a handler returns. The pipeline
// personalizes Content and applies StateEvent to the conversation
// state; it never inspects Data.
type HandlerResult struct {
	Type              string      `json:"type"`
	Content           string      `json:"content,omitempty"`
	Data              interface{} `json:"data,omitempty"`
	HasData           bool        `json:"has_data"`
	NeedsConfirmation bool        `json:"needs_confirmation,omitempty"`
	StateEvent        string      `json:"-"`
}

// RequestContext carries per-request collaborators into handlers
type RequestContext struct {
	UserID    string
	SessionID string
	State     *conversation.State
	FollowUp  bool
}

// Handler executes one resolved intent
type Handler interface {
	Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error)

func (f HandlerFunc) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	return f(ctx, it, rctx)
}

// Router maps actions to handlers. Unregistered actions fall back to
// the general conversation handler.
type Router struct {
	handlers map[string]Handler
	fallback Handler
	fetcher  *cache.BatchFetcher
	records  store.RecordStore
	logger   *log.Logger
}

// Option configures optional router collaborators
type Option func(*Router)

// WithDataFetcher backs the data handlers with cached record fetches.
// Without it they respond content-only.
func WithDataFetcher(fetcher *cache.BatchFetcher, records store.RecordStore) Option {
	return func(r *Router) {
		r.fetcher = fetcher
		r.records = records
	}
}

func New(logger *log.Logger, opts ...Option) *Router {
	r := &Router{
		handlers: map[string]Handler{},
		fallback: &generalHandler{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerDefaults()
	return r
}

// Register binds a handler to an action, replacing any default
func (r *Router) Register(action string, h Handler) {
	r.handlers[action] = h
}

// Dispatch resolves the handler for the intent's action and runs it.
// Follow-up detection is surfaced to the handler through the request
// context so it can act on the active topic instead of starting over.
func (r *Router) Dispatch(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	if rctx.State != nil {
		rctx.FollowUp = rctx.State.IsReferringToActiveTopic(it.OriginalMessage)
	}

	handler, ok := r.handlers[it.Action]
	if !ok {
		r.logger.Printf("[ROUTER] No handler for action %s, using fallback", it.Action)
		handler = r.fallback
	}

	r.logger.Printf("[ROUTER] Dispatching %s (follow-up=%v)", it.Action, rctx.FollowUp)
	return handler.Handle(ctx, it, rctx)
}

func (r *Router) registerDefaults() {
	chart := &chartHandler{}
	for _, action := range []string{
		intent.ActionCreateChart, intent.ActionModifyChart, intent.ActionViewChart,
		intent.ActionAnalyzeChart, intent.ActionExportChart,
	} {
		r.handlers[action] = chart
	}

	data := &dataHandler{fetcher: r.fetcher, records: r.records, logger: r.logger}
	for _, action := range []string{
		intent.ActionViewData, intent.ActionExploreData,
		intent.ActionAnalyzeData, intent.ActionExportData,
	} {
		r.handlers[action] = data
	}

	crm := &crmHandler{}
	for _, action := range []string{
		intent.ActionCreateContact, intent.ActionUpdateContact, intent.ActionDeleteContact,
		intent.ActionCreateAccount, intent.ActionUpdateAccount, intent.ActionDeleteAccount,
		intent.ActionCreateDeal, intent.ActionUpdateDeal, intent.ActionDeleteDeal,
		intent.ActionLogActivity,
	} {
		r.handlers[action] = crm
	}

	r.handlers[intent.ActionSendMessage] = &messagingHandler{}
	r.handlers[intent.ActionScheduleMeeting] = &schedulingHandler{}
	r.handlers[intent.ActionGenerateContent] = &contentHandler{}
	r.handlers[intent.ActionViewProfile] = &profileHandler{}
	r.handlers[intent.ActionGeneralConversation] = r.fallback
}
