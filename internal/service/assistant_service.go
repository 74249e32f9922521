package service

import (
	"context"
	"errors"

	"crm-assistant-be/internal/dto"
	"crm-assistant-be/internal/pkg/logger"
	"crm-assistant-be/pkg/ai/cache"
	"crm-assistant-be/pkg/ai/conversation"
	"crm-assistant-be/pkg/ai/pipeline"
)

// ErrRateLimited is returned when a user exhausts their message quota
var ErrRateLimited = errors.New("rate limit exceeded, please slow down")

type IAssistantService interface {
	SendMessage(ctx context.Context, userID string, req dto.SendChatRequest) (*dto.SendChatResponse, error)
	ResetSession(ctx context.Context, userID, sessionID string) error
	Suggestions(ctx context.Context, userID, sessionID string) (*dto.SuggestionsResponse, error)
}

type assistantService struct {
	orchestrator *pipeline.Orchestrator
	manager      *conversation.Manager
	limiter      cache.RateLimiter
	logger       logger.ILogger
}

func NewAssistantService(
	orchestrator *pipeline.Orchestrator,
	manager *conversation.Manager,
	limiter cache.RateLimiter,
	log logger.ILogger,
) IAssistantService {
	return &assistantService{
		orchestrator: orchestrator,
		manager:      manager,
		limiter:      limiter,
		logger:       log,
	}
}

func (s *assistantService) SendMessage(ctx context.Context, userID string, req dto.SendChatRequest) (*dto.SendChatResponse, error) {
	allowed, err := s.limiter.Allow(ctx, userID)
	if err != nil {
		// A broken limiter should not take the assistant down with it
		s.logger.Warn("AssistantService", "Rate limiter unavailable, allowing request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	} else if !allowed {
		s.logger.Warn("AssistantService", "Rate limit exceeded", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrRateLimited
	}

	resp := s.orchestrator.Resolve(ctx, userID, req.SessionID, req.Message)

	s.logger.Info("AssistantService", "Message resolved", map[string]interface{}{
		"user_id":    userID,
		"session_id": req.SessionID,
		"stage":      resp.Stage,
	})

	out := &dto.SendChatResponse{
		Message:            resp.Message,
		Data:               resp.Data,
		HasData:            resp.HasData,
		Suggestions:        resp.Suggestions,
		NeedsClarification: resp.NeedsClarification,
		Stage:              resp.Stage,
	}
	if resp.Intent != nil {
		out.Intent = &dto.IntentResponse{
			Action:     resp.Intent.Action,
			Confidence: resp.Intent.Confidence,
			Entities:   resp.Intent.Entities,
		}
	}
	return out, nil
}

func (s *assistantService) ResetSession(ctx context.Context, userID, sessionID string) error {
	s.manager.Reset(userID, sessionID)
	s.logger.Info("AssistantService", "Session reset", map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
	})
	return nil
}

func (s *assistantService) Suggestions(ctx context.Context, userID, sessionID string) (*dto.SuggestionsResponse, error) {
	state := s.manager.Get(userID, sessionID)
	return &dto.SuggestionsResponse{Suggestions: state.Suggestions}, nil
}
