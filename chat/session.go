package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/layer-3/chaintalk/core"
)

// State is the position of a session in its lifecycle.
type State int

const (
	StateConnected State = iota
	StateAuthenticating
	StateAuthenticated
	StateInRoom
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateInRoom:
		return "in_room"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one live connection. The transport feeds inbound frames
// through HandleFrame, drains Outbound into the socket, and calls
// Close on disconnect. Membership is owned by the registry; the
// session only tracks its own lifecycle state.
type Session struct {
	id       string
	hub      *Hub
	identity core.Identity

	mu           sync.Mutex
	state        State
	authFailures int
	closed       bool
	out          chan ServerFrame
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Identity returns the authenticated identity, empty before auth.
func (s *Session) Identity() core.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Outbound is the frame stream the transport writes to the socket.
// The channel is closed when the session closes.
func (s *Session) Outbound() <-chan ServerFrame {
	return s.out
}

// HandleFrame processes one inbound frame. A non-nil error means the
// transport must be force-closed; recoverable rejections are sent back
// to the client as frames instead.
func (s *Session) HandleFrame(ctx context.Context, raw []byte) error {
	if s.State() == StateClosed {
		return core.ErrSessionClosed
	}

	var frame ClientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		s.enqueue(errorFrame("malformed frame"))
		return nil
	}

	switch frame.Type {
	case ClientAuthenticate:
		return s.handleAuthenticate(frame.Payload)
	case ClientPing:
		s.enqueue(ServerFrame{Type: ServerPong})
		return nil
	case ClientSendText:
		if !s.authenticated() {
			s.enqueue(errorFrame(core.ErrNotAuthenticated.Error()))
			return nil
		}
		return s.handleSendText(frame.Payload)
	case ClientJoinRoom:
		if !s.authenticated() {
			s.enqueue(errorFrame(core.ErrNotAuthenticated.Error()))
			return nil
		}
		return s.handleJoinRoom(ctx, frame.Payload)
	case ClientLeaveRoom:
		if !s.authenticated() {
			s.enqueue(errorFrame(core.ErrNotAuthenticated.Error()))
			return nil
		}
		return s.handleLeaveRoom(frame.Payload)
	default:
		s.enqueue(errorFrame("unknown frame type"))
		return nil
	}
}

func (s *Session) authenticated() bool {
	state := s.State()
	return state == StateAuthenticated || state == StateInRoom
}

func (s *Session) handleAuthenticate(payload json.RawMessage) error {
	if s.authenticated() {
		s.enqueue(ServerFrame{Type: ServerAuthFailed, Payload: ErrorPayload{Message: core.ErrAlreadyAuthenticated.Error()}})
		return nil
	}

	s.setState(StateAuthenticating)

	var req AuthenticatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return s.authFailed("malformed authenticate payload")
	}

	authSession, err := s.hub.auth.ValidateToken(req.Token)
	if err != nil {
		return s.authFailed("invalid or expired session token")
	}

	s.mu.Lock()
	s.identity = authSession.Address
	s.state = StateAuthenticated
	s.mu.Unlock()

	evicted, evictedRooms := s.hub.registry.Register(s)
	if evicted != nil {
		for _, room := range evictedRooms {
			s.hub.Publish(room, userLeftFrame(evicted.identity, room))
		}
		evicted.evict()
	}

	s.enqueue(ServerFrame{Type: ServerAuthSuccess, Payload: AuthSuccessPayload{
		UserAddress: authSession.Address.String(),
	}})
	return nil
}

// authFailed records a failed attempt and reports whether the failure
// budget is exhausted, in which case the transport must close.
func (s *Session) authFailed(reason string) error {
	s.mu.Lock()
	s.authFailures++
	failures := s.authFailures
	s.mu.Unlock()

	s.enqueue(ServerFrame{Type: ServerAuthFailed, Payload: ErrorPayload{Message: reason}})

	if failures >= s.hub.opts.AuthFailureLimit {
		return core.ErrTooManyAuthFailures
	}
	return nil
}

func (s *Session) handleSendText(payload json.RawMessage) error {
	var req SendTextPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		s.enqueue(errorFrame("malformed SendText payload"))
		return nil
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		s.enqueue(errorFrame("message cannot be empty"))
		return nil
	}
	if len(text) > s.hub.opts.MaxTextLength {
		s.enqueue(errorFrame("message too long"))
		return nil
	}

	if !s.hub.registry.IsMember(s.id, req.Room) {
		s.enqueue(errorFrame(core.ErrNotInRoom.Error()))
		return nil
	}

	msg := core.NewChatMessage(req.Room, s.Identity(), text)
	s.hub.Publish(req.Room, newTextFrame(msg))
	return nil
}

func (s *Session) handleJoinRoom(ctx context.Context, payload json.RawMessage) error {
	var req RoomPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Room == "" {
		s.enqueue(errorFrame("malformed JoinRoom payload"))
		return nil
	}

	if s.hub.registry.IsMember(s.id, req.Room) {
		// Rejoining is an idempotent ack: no second gate check, no
		// duplicate presence announcement.
		s.enqueue(ServerFrame{Type: ServerRoomUsers, Payload: RoomUsersPayload{
			Room:  req.Room,
			Users: s.hub.registry.MemberIdentities(req.Room),
		}})
		return nil
	}

	rule := s.hub.registry.GateRule(req.Room)
	pass, err := s.hub.gate.Check(ctx, s.Identity(), rule)
	if err != nil {
		// An unavailable oracle is surfaced to the client, never
		// treated as a pass.
		s.enqueue(errorFrame("room access check unavailable, try again"))
		return nil
	}
	if !pass {
		s.enqueue(accessDeniedFrame(req.Room, "insufficient token balance"))
		return nil
	}

	if err := s.hub.registry.Join(s.id, req.Room); err != nil {
		s.enqueue(errorFrame(err.Error()))
		return nil
	}
	s.setState(StateInRoom)

	s.hub.Publish(req.Room, userJoinedFrame(s.Identity(), req.Room))
	s.enqueue(ServerFrame{Type: ServerRoomUsers, Payload: RoomUsersPayload{
		Room:  req.Room,
		Users: s.hub.registry.MemberIdentities(req.Room),
	}})
	return nil
}

func (s *Session) handleLeaveRoom(payload json.RawMessage) error {
	var req RoomPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.Room == "" {
		s.enqueue(errorFrame("malformed LeaveRoom payload"))
		return nil
	}

	if err := s.hub.registry.Leave(s.id, req.Room); err != nil {
		s.enqueue(errorFrame(err.Error()))
		return nil
	}

	s.hub.Publish(req.Room, userLeftFrame(s.Identity(), req.Room))

	if len(s.hub.registry.RoomsOf(s.id)) == 0 {
		s.setState(StateAuthenticated)
	}
	return nil
}

// Close tears the session down: it deregisters from every room in the
// same step the transport goes away, announces the departures, and
// releases the outbound channel. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateClosed
	identity := s.identity
	s.mu.Unlock()

	rooms := s.hub.registry.Deregister(s.id)
	for _, room := range rooms {
		s.hub.Publish(room, userLeftFrame(identity, room))
	}

	close(s.out)
}

// evict closes a session replaced by a newer login with the same
// identity. The registry has already dropped it.
func (s *Session) evict() {
	s.enqueue(errorFrame("session replaced by a new connection"))

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state = StateClosed
	s.mu.Unlock()

	close(s.out)
}

// enqueue performs a non-blocking send to the member's outbound queue.
// A full queue drops the frame; a closed session swallows it.
func (s *Session) enqueue(frame ServerFrame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.out <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	if !s.closed {
		s.state = state
	}
	s.mu.Unlock()
}
