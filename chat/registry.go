package chat

import (
	"sort"
	"sync"

	"github.com/layer-3/chaintalk/core"
)

// room couples a member set with its gate rule and an ordering lock.
// orderMu serializes publishes so every member observes the same
// per-room delivery order.
type room struct {
	name    string
	gate    *core.TokenGateRule
	members map[string]*Session

	orderMu sync.Mutex
}

// Registry is the single source of truth for live sessions and room
// membership. All mutations go through its methods under one lock, so
// a concurrent broadcast never observes a half-updated room.
type Registry struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	byIdentity map[core.Identity]string
	rooms      map[string]*room

	allowMultiSession bool
}

// NewRegistry creates an empty connection registry. When multi-session
// is disallowed, registering an identity evicts its prior session.
func NewRegistry(allowMultiSession bool) *Registry {
	return &Registry{
		sessions:   make(map[string]*Session),
		byIdentity: make(map[core.Identity]string),
		rooms:      make(map[string]*room),

		allowMultiSession: allowMultiSession,
	}
}

// ConfigureRoom pre-creates a room, attaching its gate rule. Gated
// rooms must be configured before anyone can join them; ungated rooms
// are created lazily on first join.
func (r *Registry) ConfigureRoom(cfg core.RoomConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rooms[cfg.Name]; ok {
		existing.gate = cfg.Gate
		return
	}
	r.rooms[cfg.Name] = &room{
		name:    cfg.Name,
		gate:    cfg.Gate,
		members: make(map[string]*Session),
	}
}

// GateRule returns the gate rule for a room, nil when the room is
// ungated or unknown.
func (r *Registry) GateRule(name string) *core.TokenGateRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if rm, ok := r.rooms[name]; ok {
		return rm.gate
	}
	return nil
}

// Register adds an authenticated session. It returns the prior session
// for the same identity, and the rooms it was evicted from, when
// single-session policy evicts it; the caller closes the evicted
// session outside the registry lock.
func (r *Registry) Register(s *Session) (evicted *Session, evictedRooms []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.allowMultiSession {
		if oldID, ok := r.byIdentity[s.identity]; ok && oldID != s.id {
			evicted = r.sessions[oldID]
			evictedRooms = r.removeLocked(oldID)
		}
	}

	r.sessions[s.id] = s
	r.byIdentity[s.identity] = s.id
	return evicted, evictedRooms
}

// Deregister removes a session and its room memberships in one atomic
// step. It is idempotent; a double deregister is a no-op. It returns
// the rooms the session was a member of so the caller can announce the
// departures.
func (r *Registry) Deregister(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.removeLocked(sessionID)
}

func (r *Registry) removeLocked(sessionID string) []string {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}

	var left []string
	for name, rm := range r.rooms {
		if _, member := rm.members[sessionID]; member {
			delete(rm.members, sessionID)
			left = append(left, name)
			r.dropIfEmptyLocked(rm)
		}
	}

	delete(r.sessions, sessionID)
	if r.byIdentity[s.identity] == sessionID {
		delete(r.byIdentity, s.identity)
	}
	return left
}

// Join adds the session to the room, creating ungated rooms lazily.
// Both sides of the membership relation change under the same lock.
func (r *Registry) Join(sessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return core.ErrSessionClosed
	}

	rm, ok := r.rooms[name]
	if !ok {
		rm = &room{name: name, members: make(map[string]*Session)}
		r.rooms[name] = rm
	}

	rm.members[sessionID] = s
	return nil
}

// Leave removes the session from the room. Unknown rooms and
// non-members are no-ops.
func (r *Registry) Leave(sessionID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[name]
	if !ok {
		return core.ErrRoomNotFound
	}
	if _, member := rm.members[sessionID]; !member {
		return core.ErrNotInRoom
	}

	delete(rm.members, sessionID)
	r.dropIfEmptyLocked(rm)
	return nil
}

// Empty ungated rooms are dropped; configured gated rooms persist so
// their rules survive membership churn.
func (r *Registry) dropIfEmptyLocked(rm *room) {
	if len(rm.members) == 0 && rm.gate == nil {
		delete(r.rooms, rm.name)
	}
}

// RoomsOf returns the rooms the session is currently joined to.
func (r *Registry) RoomsOf(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rooms []string
	for name, rm := range r.rooms {
		if _, member := rm.members[sessionID]; member {
			rooms = append(rooms, name)
		}
	}
	return rooms
}

// IsMember reports whether the session is currently joined to the room.
func (r *Registry) IsMember(sessionID, name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return false
	}
	_, member := rm.members[sessionID]
	return member
}

// MembersOf returns a point-in-time snapshot of the sessions joined to
// the room. The snapshot is safe to iterate while memberships change.
func (r *Registry) MembersOf(name string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return nil
	}

	members := make([]*Session, 0, len(rm.members))
	for _, s := range rm.members {
		members = append(members, s)
	}
	return members
}

// MemberIdentities returns the display names of the room's current
// members, for RoomUsers frames.
func (r *Registry) MemberIdentities(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return nil
	}

	users := make([]string, 0, len(rm.members))
	for _, s := range rm.members {
		users = append(users, s.identity.DisplayName())
	}
	return users
}

// RoomView is a read-only snapshot of one room for discovery.
type RoomView struct {
	Name    string
	Gate    *core.TokenGateRule
	Members []string
}

// ListRooms returns a snapshot of every known room, sorted by name.
// Configured gated rooms appear even while empty.
func (r *Registry) ListRooms() []RoomView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]RoomView, 0, len(r.rooms))
	for _, rm := range r.rooms {
		views = append(views, r.viewLocked(rm))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// RoomInfo returns a snapshot of one room, reporting whether it exists.
func (r *Registry) RoomInfo(name string) (RoomView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[name]
	if !ok {
		return RoomView{}, false
	}
	return r.viewLocked(rm), true
}

func (r *Registry) viewLocked(rm *room) RoomView {
	members := make([]string, 0, len(rm.members))
	for _, s := range rm.members {
		members = append(members, s.identity.DisplayName())
	}
	sort.Strings(members)
	return RoomView{Name: rm.name, Gate: rm.gate, Members: members}
}

// SessionCount reports the number of live sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) getRoom(name string) *room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[name]
}
