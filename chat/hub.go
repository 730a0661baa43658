package chat

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"

	"github.com/layer-3/chaintalk/core"
)

// AuthValidator validates session tokens, satisfied by
// service.AuthService.
type AuthValidator interface {
	ValidateToken(token string) (*core.AuthSession, error)
}

// GateChecker evaluates token gate rules, satisfied by
// service.GateService.
type GateChecker interface {
	Check(ctx context.Context, identity core.Identity, rule *core.TokenGateRule) (bool, error)
}

// Options tune the broadcast and session policies.
type Options struct {
	// OutboundBuffer is the per-member outbound queue depth. When a
	// member's queue is full the newest frame for that member is
	// dropped; the shared publish path never blocks.
	OutboundBuffer int

	// AuthFailureLimit force-closes the transport after this many
	// failed authentication attempts on one connection.
	AuthFailureLimit int

	// MaxTextLength bounds a single chat message.
	MaxTextLength int

	// AllowMultiSession permits several live sessions per identity.
	// When false, a new login evicts the prior session.
	AllowMultiSession bool
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		OutboundBuffer:   128,
		AuthFailureLimit: 5,
		MaxTextLength:    1000,
	}
}

// Hub is the broadcast engine. Chat producers and the chain event
// relay are symmetric callers of its publish path; neither can block
// the other or a slow member.
type Hub struct {
	registry *Registry
	auth     AuthValidator
	gate     GateChecker
	opts     Options
	logger   watermill.LoggerAdapter
}

// NewHub creates a broadcast hub over the given registry.
func NewHub(registry *Registry, auth AuthValidator, gate GateChecker, opts Options, logger watermill.LoggerAdapter) *Hub {
	if opts.OutboundBuffer <= 0 {
		opts.OutboundBuffer = DefaultOptions().OutboundBuffer
	}
	if opts.AuthFailureLimit <= 0 {
		opts.AuthFailureLimit = DefaultOptions().AuthFailureLimit
	}
	if opts.MaxTextLength <= 0 {
		opts.MaxTextLength = DefaultOptions().MaxTextLength
	}

	return &Hub{
		registry: registry,
		auth:     auth,
		gate:     gate,
		opts:     opts,
		logger:   logger,
	}
}

// Registry exposes the hub's connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// NewSession creates a session in the Connected state. The transport
// owns its lifecycle: frames in through HandleFrame, frames out
// through Outbound, teardown through Close.
func (h *Hub) NewSession() *Session {
	return &Session{
		id:    uuid.New().String(),
		hub:   h,
		state: StateConnected,
		out:   make(chan ServerFrame, h.opts.OutboundBuffer),
	}
}

// Publish fans a frame out to every current member of the room.
// Frames published to the same room are delivered to all members in
// publish order. Delivery per member is at-most-once: a member whose
// outbound queue is full has the newest frame dropped rather than
// stalling the room.
func (h *Hub) Publish(roomName string, frame ServerFrame) {
	for {
		rm := h.registry.getRoom(roomName)
		if rm == nil {
			// Broadcasting to an unknown room is a safe no-op.
			return
		}

		rm.orderMu.Lock()
		if h.registry.getRoom(roomName) != rm {
			// The room emptied out and was recreated while we waited;
			// this lock no longer governs the name. Take the current
			// instance's lock so all publishers share one ordering
			// domain.
			rm.orderMu.Unlock()
			continue
		}

		for _, member := range h.registry.MembersOf(roomName) {
			if !member.enqueue(frame) {
				h.logger.Debug("Dropped frame for slow member", watermill.LogFields{
					"session": member.id,
					"room":    roomName,
					"type":    string(frame.Type),
				})
			}
		}
		rm.orderMu.Unlock()
		return
	}
}

// BroadcastChainEvent wraps a chain event in the outbound envelope and
// publishes it. This is the relay's entry point into fan-out.
func (h *Hub) BroadcastChainEvent(roomName string, event core.ChainEvent) {
	h.Publish(roomName, chainEventFrame(event))
}
