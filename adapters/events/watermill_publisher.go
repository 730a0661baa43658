package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/ports"
)

// ChainEventTopic is the topic chain events travel on between the
// ingestion bridge and the broadcast relay.
const ChainEventTopic = "chaintalk.chain_events"

// WatermillPublisher implements the ChainEventPublisher interface using
// Watermill. With the Redis Stream backend the topic spans instances;
// with the gochannel backend it stays in-process.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.ChainEventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     ChainEventTopic,
	}
}

// PublishChainEvent publishes a chain event to the event topic
func (p *WatermillPublisher) PublishChainEvent(ctx context.Context, event core.ChainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
