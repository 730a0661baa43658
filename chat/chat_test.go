package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"

	"github.com/layer-3/chaintalk/core"
)

// stubAuth maps pre-issued tokens to identities.
type stubAuth struct {
	tokens map[string]core.Identity
}

func (a *stubAuth) ValidateToken(token string) (*core.AuthSession, error) {
	identity, ok := a.tokens[token]
	if !ok {
		return nil, core.ErrInvalidToken
	}
	now := time.Now()
	return &core.AuthSession{
		ID:        uuid.New().String(),
		Address:   identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}, nil
}

// stubGate resolves balances from a fixed table.
type stubGate struct {
	balances map[core.Identity]*big.Int
	err      error
	onCheck  func()
}

func (g *stubGate) Check(ctx context.Context, identity core.Identity, rule *core.TokenGateRule) (bool, error) {
	if rule == nil {
		return true, nil
	}
	if g.onCheck != nil {
		g.onCheck()
	}
	if g.err != nil {
		return false, g.err
	}
	balance, ok := g.balances[identity]
	if !ok {
		balance = new(big.Int)
	}
	return balance.Cmp(rule.MinimumBalance) >= 0, nil
}

const (
	addrA = "0x00000000000000000000000000000000000000aa"
	addrB = "0x00000000000000000000000000000000000000bb"
	addrC = "0x00000000000000000000000000000000000000cc"
)

func newTestHub(opts Options, gate *stubGate) (*Hub, *stubAuth) {
	auth := &stubAuth{tokens: map[string]core.Identity{
		"tok-a": core.Identity(addrA),
		"tok-b": core.Identity(addrB),
		"tok-c": core.Identity(addrC),
	}}
	if gate == nil {
		gate = &stubGate{}
	}
	registry := NewRegistry(opts.AllowMultiSession)
	return NewHub(registry, auth, gate, opts, watermill.NopLogger{}), auth
}

func clientFrame(frameType ClientFrameType, payload interface{}) []byte {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	frame, err := json.Marshal(ClientFrame{Type: frameType, Payload: raw})
	if err != nil {
		panic(err)
	}
	return frame
}

func authenticate(s *Session, token string) error {
	return s.HandleFrame(context.Background(), clientFrame(ClientAuthenticate, AuthenticatePayload{Token: token}))
}

func joinRoom(s *Session, room string) error {
	return s.HandleFrame(context.Background(), clientFrame(ClientJoinRoom, RoomPayload{Room: room}))
}

func sendText(s *Session, room, text string) error {
	return s.HandleFrame(context.Background(), clientFrame(ClientSendText, SendTextPayload{Room: room, Text: text}))
}

// drain collects every frame currently queued for the session.
func drain(s *Session) []ServerFrame {
	var frames []ServerFrame
	for {
		select {
		case frame, ok := <-s.out:
			if !ok {
				return frames
			}
			frames = append(frames, frame)
		default:
			return frames
		}
	}
}

func frameTypes(frames []ServerFrame) []ServerFrameType {
	types := make([]ServerFrameType, len(frames))
	for i, f := range frames {
		types[i] = f.Type
	}
	return types
}

func textFrames(frames []ServerFrame) []core.ChatMessage {
	var messages []core.ChatMessage
	for _, f := range frames {
		if f.Type == ServerNewText {
			messages = append(messages, f.Payload.(core.ChatMessage))
		}
	}
	return messages
}

func whalesRule(minimum int64) *core.TokenGateRule {
	return &core.TokenGateRule{
		Kind:            core.TokenKindERC20,
		ContractAddress: "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984",
		MinimumBalance:  big.NewInt(minimum),
	}
}

func textMessage(room string, i int) ServerFrame {
	return newTextFrame(core.ChatMessage{
		ID:        uuid.New().String(),
		Room:      room,
		From:      "tester",
		Text:      fmt.Sprintf("message %d", i),
		Timestamp: time.Now().UTC(),
	})
}
