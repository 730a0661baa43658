package ports

import (
	"context"

	"github.com/layer-3/chaintalk/core"
)

// ChainEventPublisher decouples the ingestion bridge from the broadcast
// path. The bridge hands typed events to the publisher; a relay on the
// other side feeds them into room fan-out.
type ChainEventPublisher interface {
	PublishChainEvent(ctx context.Context, event core.ChainEvent) error
}
