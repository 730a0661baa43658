package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ChatMessage is a user-authored message addressed to a room.
// Immutable once created.
type ChatMessage struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	From      string    `json:"from"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChatMessage creates a chat message with a fresh id and timestamp.
func NewChatMessage(room string, from Identity, text string) ChatMessage {
	return ChatMessage{
		ID:        uuid.New().String(),
		Room:      room,
		From:      from.DisplayName(),
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// ChainEvent is a blockchain-log-derived event produced by the
// ingestion bridge. Immutable once created.
type ChainEvent struct {
	ID              string          `json:"id"`
	EventType       string          `json:"event_type"`
	TransactionHash string          `json:"transaction_hash"`
	BlockNumber     uint64          `json:"block_number"`
	Timestamp       time.Time       `json:"timestamp"`
	Details         json.RawMessage `json:"details"`
}

// NewChainEvent creates a chain event with a fresh id and timestamp.
func NewChainEvent(eventType, txHash string, blockNumber uint64, details json.RawMessage) ChainEvent {
	return ChainEvent{
		ID:              uuid.New().String(),
		EventType:       eventType,
		TransactionHash: txHash,
		BlockNumber:     blockNumber,
		Timestamp:       time.Now().UTC(),
		Details:         details,
	}
}

// SwapDetails carries the decoded fields of a Uniswap V3 swap log,
// embedded in a ChainEvent as its details payload.
type SwapDetails struct {
	Sender       string `json:"sender"`
	Recipient    string `json:"recipient"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	SqrtPriceX96 string `json:"sqrt_price_x96"`
	Liquidity    string `json:"liquidity"`
	Tick         int32  `json:"tick"`
	PoolAddress  string `json:"pool_address"`
	Token0       string `json:"token0"`
	Token1       string `json:"token1"`
}
