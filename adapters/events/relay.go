package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/layer-3/chaintalk/core"
)

// Broadcaster is the sink side of the relay, satisfied by chat.Hub.
type Broadcaster interface {
	BroadcastChainEvent(room string, event core.ChainEvent)
}

// Relay consumes chain events from the Watermill topic and feeds them
// into room fan-out. It is the only coupling between the ingestion
// side and the chat side.
type Relay struct {
	subscriber message.Subscriber
	sink       Broadcaster
	room       string
	logger     watermill.LoggerAdapter
}

// NewRelay creates a relay delivering chain events to the given room.
func NewRelay(subscriber message.Subscriber, sink Broadcaster, room string, logger watermill.LoggerAdapter) *Relay {
	return &Relay{
		subscriber: subscriber,
		sink:       sink,
		room:       room,
		logger:     logger,
	}
}

// Run blocks consuming the chain event topic until the context is
// cancelled. Malformed payloads are acked and dropped.
func (r *Relay) Run(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, ChainEventTopic)
	if err != nil {
		return err
	}

	for msg := range messages {
		var event core.ChainEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			r.logger.Error("Dropping malformed chain event", err, watermill.LogFields{"message_id": msg.UUID})
			msg.Ack()
			continue
		}

		r.sink.BroadcastChainEvent(r.room, event)
		msg.Ack()
	}

	return nil
}
