package router

import (
	"context"
	"fmt"
	"log"
	"strings"

	"crm-assistant-be/pkg/ai/cache"
	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/intent"
	"crm-assistant-be/pkg/store"
)

// chartHandler builds and maintains the active chart topic
type chartHandler struct{}

func (h *chartHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	switch it.Action {
	case intent.ActionCreateChart:
		chartType := it.Entities["chart_type"]
		if chartType == "" {
			chartType = "bar"
		}
		dataType := it.Entities["data_type"]
		if dataType == "" {
			dataType = "deals"
		}
		topic := &conversation.Topic{
			Type:      "chart",
			DataType:  dataType,
			Dimension: it.Entities["dimension"],
			ChartType: chartType,
			Title:     fmt.Sprintf("%s by %s", dataType, orDefault(it.Entities["dimension"], "count")),
		}
		rctx.State.SetActiveTopic(topic)
		return &HandlerResult{
			Type:       "chart",
			Content:    fmt.Sprintf("Here's a %s chart of your %s.", chartType, dataType),
			HasData:    true,
			StateEvent: "chart_created",
		}, nil

	case intent.ActionModifyChart:
		topic := rctx.State.CurrentContext.ActiveTopic
		if topic == nil {
			return &HandlerResult{
				Type:    "text",
				Content: "There's no chart to modify yet. Want me to create one?",
			}, nil
		}
		if chartType := it.Entities["chart_type"]; chartType != "" {
			topic.ChartType = chartType
		}
		if dimension := it.Entities["dimension"]; dimension != "" {
			topic.Dimension = dimension
		}
		return &HandlerResult{
			Type:       "chart",
			Content:    fmt.Sprintf("Done. Your chart is now a %s chart.", topic.ChartType),
			HasData:    true,
			StateEvent: "chart_modified",
		}, nil

	case intent.ActionViewChart:
		return &HandlerResult{
			Type:       "chart",
			Content:    "Here's your current chart.",
			HasData:    true,
			StateEvent: "chart_viewed",
		}, nil

	case intent.ActionAnalyzeChart:
		return &HandlerResult{
			Type:       "text",
			Content:    "Looking at the chart, the largest segment dominates the distribution.",
			StateEvent: "analysis_completed",
		}, nil

	case intent.ActionExportChart:
		return &HandlerResult{
			Type:       "export",
			Content:    "Your chart export is ready.",
			HasData:    true,
			StateEvent: "chart_exported",
		}, nil
	}
	return nil, fmt.Errorf("chart handler: unsupported action %s", it.Action)
}

// fetchableKinds maps a spoken data type onto its record collection
var fetchableKinds = map[string]store.RecordKind{
	"contacts":   store.KindContact,
	"accounts":   store.KindAccount,
	"deals":      store.KindDeal,
	"activities": store.KindActivity,
}

// dataHandler serves record views and analyses, backed by the batch
// fetcher when the router is wired with one
type dataHandler struct {
	fetcher *cache.BatchFetcher
	records store.RecordStore
	logger  *log.Logger
}

func (h *dataHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	dataType := orDefault(it.Entities["data_type"], "records")
	data := h.fetchRecords(ctx, rctx.UserID, dataType)

	switch it.Action {
	case intent.ActionViewData:
		rctx.State.SetActiveTopic(&conversation.Topic{Type: "data", DataType: dataType})
		return &HandlerResult{
			Type:       "data",
			Content:    fmt.Sprintf("Here are your %s.", dataType),
			Data:       data,
			HasData:    true,
			StateEvent: "data_viewed",
		}, nil
	case intent.ActionExploreData:
		return &HandlerResult{
			Type:       "data",
			Content:    fmt.Sprintf("Let's dig into your %s.", dataType),
			Data:       data,
			HasData:    true,
			StateEvent: "data_explored",
		}, nil
	case intent.ActionAnalyzeData:
		return &HandlerResult{
			Type:       "text",
			Content:    fmt.Sprintf("Here's what stands out in your %s.", dataType),
			Data:       data,
			HasData:    true,
			StateEvent: "data_analyzed",
		}, nil
	case intent.ActionExportData:
		return &HandlerResult{
			Type:       "export",
			Content:    fmt.Sprintf("Your %s export is ready.", dataType),
			Data:       data,
			HasData:    true,
			StateEvent: "data_exported",
		}, nil
	}
	return nil, fmt.Errorf("data handler: unsupported action %s", it.Action)
}

// fetchRecords loads the requested collections through the cached
// batch fetcher. An unmapped data type fans out to every collection.
// Fetch failures degrade to a content-only response.
func (h *dataHandler) fetchRecords(ctx context.Context, userID, dataType string) interface{} {
	if h.fetcher == nil || h.records == nil {
		return nil
	}

	teamID, err := h.records.ResolveTeamID(ctx, userID)
	if err != nil {
		h.logger.Printf("[ROUTER] Failed to resolve team for %s: %v", userID, err)
		return nil
	}

	var legs []cache.Leg
	if kind, ok := fetchableKinds[dataType]; ok {
		legs = append(legs, h.legFor(teamID, dataType, kind))
	} else {
		for name, kind := range fetchableKinds {
			legs = append(legs, h.legFor(teamID, name, kind))
		}
	}

	results := h.fetcher.FetchAll(ctx, userID, legs)
	data := make(map[string]interface{}, len(results))
	for name, result := range results {
		if result.Err != nil {
			h.logger.Printf("[ROUTER] Failed to fetch %s: %v", name, result.Err)
			continue
		}
		data[name] = result.Data
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func (h *dataHandler) legFor(teamID, name string, kind store.RecordKind) cache.Leg {
	return cache.Leg{
		Kind: name,
		Fetch: func(ctx context.Context) (interface{}, error) {
			return h.records.ListByKind(ctx, teamID, kind)
		},
	}
}

// crmHandler performs record mutations; destructive ones round-trip
// through a pending confirmation before executing
type crmHandler struct{}

func (h *crmHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	verb, kind := splitAction(it.Action)

	if verb == "delete" {
		pending := rctx.State.CurrentContext.PendingConfirmation
		if pending == nil || pending.Action != it.Action {
			question := fmt.Sprintf("Are you sure you want to delete this %s? This can't be undone.", kind)
			rctx.State.SetPendingConfirmation(&conversation.PendingConfirmation{
				Action:   it.Action,
				Entities: it.Entities,
				Question: question,
			})
			return &HandlerResult{
				Type:              "confirmation",
				Content:           question,
				NeedsConfirmation: true,
			}, nil
		}
		rctx.State.ClearPendingConfirmation()
		return &HandlerResult{
			Type:       "text",
			Content:    fmt.Sprintf("The %s has been deleted.", kind),
			StateEvent: "record_deleted",
		}, nil
	}

	switch verb {
	case "create":
		return &HandlerResult{
			Type:       "text",
			Content:    fmt.Sprintf("I've created the %s.", kind),
			StateEvent: "record_created",
		}, nil
	case "update":
		return &HandlerResult{
			Type:       "text",
			Content:    fmt.Sprintf("I've updated the %s.", kind),
			StateEvent: "record_updated",
		}, nil
	case "log":
		return &HandlerResult{
			Type:       "text",
			Content:    "Activity logged.",
			StateEvent: "record_created",
		}, nil
	}
	return nil, fmt.Errorf("crm handler: unsupported action %s", it.Action)
}

type messagingHandler struct{}

func (h *messagingHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	recipient := orDefault(it.Entities["recipient"], "the contact")
	return &HandlerResult{
		Type:    "text",
		Content: fmt.Sprintf("I've drafted a message to %s. Review it before sending.", recipient),
	}, nil
}

type schedulingHandler struct{}

func (h *schedulingHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	attendee := orDefault(it.Entities["attendee"], "the contact")
	return &HandlerResult{
		Type:    "text",
		Content: fmt.Sprintf("I've set up a meeting with %s. Check your calendar for the invite.", attendee),
	}, nil
}

type contentHandler struct{}

func (h *contentHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	return &HandlerResult{
		Type:    "text",
		Content: "Here's a draft to get you started. Tell me what to adjust.",
	}, nil
}

type profileHandler struct{}

func (h *profileHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	return &HandlerResult{
		Type:    "data",
		Content: "Here's the profile you asked for.",
		HasData: true,
	}, nil
}

type generalHandler struct{}

func (h *generalHandler) Handle(ctx context.Context, it *intent.Intent, rctx *RequestContext) (*HandlerResult, error) {
	if it.Metadata.NeedsClarification && it.Metadata.ClarificationQuestion != "" {
		return &HandlerResult{
			Type:    "text",
			Content: it.Metadata.ClarificationQuestion,
		}, nil
	}
	return &HandlerResult{
		Type:    "text",
		Content: "I can help you view and manage your CRM data, or build charts from it. What would you like to do?",
	}, nil
}

// splitAction breaks "update_contact" into its verb and record kind
func splitAction(action string) (verb, kind string) {
	parts := strings.SplitN(action, "_", 2)
	if len(parts) != 2 {
		return action, ""
	}
	return parts[0], parts[1]
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
