package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const InteractionTopic = "assistant.interactions"

// InteractionEvent is published once per resolved message. Consumers
// (analytics, audit) subscribe on InteractionTopic.
type InteractionEvent struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	Success    bool      `json:"success"`
	Stage      string    `json:"stage"`
	OccurredAt time.Time `json:"occurred_at"`
}

type IPublisher interface {
	Publish(ctx context.Context, event InteractionEvent) error
}

type publisher struct {
	pubSub *gochannel.GoChannel
	topic  string
}

func NewPublisher(pubSub *gochannel.GoChannel, topic string) IPublisher {
	return &publisher{pubSub: pubSub, topic: topic}
}

func (p *publisher) Publish(ctx context.Context, event InteractionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal interaction event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.pubSub.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", p.topic, err)
	}
	return nil
}
