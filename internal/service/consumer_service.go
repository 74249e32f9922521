package service

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"crm-assistant-be/internal/pkg/logger"
	"crm-assistant-be/pkg/events"
)

// IConsumerService drains the interaction event stream. Today the
// consumer only mirrors events into the structured log; downstream
// analytics can subscribe to the same topic later.
type IConsumerService interface {
	Start(ctx context.Context) error
}

type consumerService struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger logger.ILogger
}

func NewConsumerService(pubSub *gochannel.GoChannel, topic string, log logger.ILogger) IConsumerService {
	return &consumerService{
		pubSub: pubSub,
		topic:  topic,
		logger: log,
	}
}

func (s *consumerService) Start(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topic)
	if err != nil {
		return err
	}

	for msg := range messages {
		var event events.InteractionEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			s.logger.Warn("ConsumerService", "Dropping malformed interaction event", map[string]interface{}{
				"error": err.Error(),
			})
			msg.Ack()
			continue
		}

		s.logger.Info("ConsumerService", "Interaction recorded", map[string]interface{}{
			"user_id":    event.UserID,
			"session_id": event.SessionID,
			"action":     event.Action,
			"confidence": event.Confidence,
			"success":    event.Success,
			"stage":      event.Stage,
		})
		msg.Ack()
	}
	return nil
}
