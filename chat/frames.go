package chat

import (
	"encoding/json"
	"time"

	"github.com/layer-3/chaintalk/core"
)

// ClientFrameType enumerates client-to-server frame types.
type ClientFrameType string

const (
	ClientAuthenticate ClientFrameType = "Authenticate"
	ClientSendText     ClientFrameType = "SendText"
	ClientJoinRoom     ClientFrameType = "JoinRoom"
	ClientLeaveRoom    ClientFrameType = "LeaveRoom"
	ClientPing         ClientFrameType = "Ping"
)

// ClientFrame is the envelope for client-to-server messages.
type ClientFrame struct {
	Type    ClientFrameType `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// AuthenticatePayload carries the session token minted by login.
type AuthenticatePayload struct {
	Token string `json:"token"`
}

// SendTextPayload carries a chat message addressed to a room.
type SendTextPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// RoomPayload names a room for join and leave requests.
type RoomPayload struct {
	Room string `json:"room"`
}

// ServerFrameType enumerates server-to-client frame types.
type ServerFrameType string

const (
	ServerAuthSuccess  ServerFrameType = "AuthSuccess"
	ServerAuthFailed   ServerFrameType = "AuthFailed"
	ServerNewText      ServerFrameType = "NewText"
	ServerUserJoined   ServerFrameType = "UserJoined"
	ServerUserLeft     ServerFrameType = "UserLeft"
	ServerRoomUsers    ServerFrameType = "RoomUsers"
	ServerChainEvent   ServerFrameType = "ChainEvent"
	ServerAccessDenied ServerFrameType = "AccessDenied"
	ServerError        ServerFrameType = "Error"
	ServerPong         ServerFrameType = "Pong"
)

// ServerFrame is the common outbound envelope for chat messages, chain
// events and control signals. Immutable once published.
type ServerFrame struct {
	Type    ServerFrameType `json:"type"`
	Payload interface{}     `json:"payload,omitempty"`
}

// PresencePayload describes a user joining or leaving a room.
type PresencePayload struct {
	User      string    `json:"user"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomUsersPayload lists the current members of a room.
type RoomUsersPayload struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// AuthSuccessPayload confirms a completed handshake.
type AuthSuccessPayload struct {
	UserAddress string `json:"user_address"`
}

// ErrorPayload carries a user-visible rejection.
type ErrorPayload struct {
	Message string `json:"message"`
}

// AccessDeniedPayload reports a failed token gate check.
type AccessDeniedPayload struct {
	Room   string `json:"room"`
	Reason string `json:"reason"`
}

func newTextFrame(msg core.ChatMessage) ServerFrame {
	return ServerFrame{Type: ServerNewText, Payload: msg}
}

func chainEventFrame(event core.ChainEvent) ServerFrame {
	return ServerFrame{Type: ServerChainEvent, Payload: event}
}

func userJoinedFrame(user core.Identity, room string) ServerFrame {
	return ServerFrame{Type: ServerUserJoined, Payload: PresencePayload{
		User:      user.DisplayName(),
		Room:      room,
		Timestamp: time.Now().UTC(),
	}}
}

func userLeftFrame(user core.Identity, room string) ServerFrame {
	return ServerFrame{Type: ServerUserLeft, Payload: PresencePayload{
		User:      user.DisplayName(),
		Room:      room,
		Timestamp: time.Now().UTC(),
	}}
}

func errorFrame(message string) ServerFrame {
	return ServerFrame{Type: ServerError, Payload: ErrorPayload{Message: message}}
}

func accessDeniedFrame(room, reason string) ServerFrame {
	return ServerFrame{Type: ServerAccessDenied, Payload: AccessDeniedPayload{Room: room, Reason: reason}}
}
