package core

import "math/big"

// TokenKind enumerates the token standards a gate rule can target.
type TokenKind string

const (
	TokenKindERC20   TokenKind = "ERC20"
	TokenKindERC721  TokenKind = "ERC721"
	TokenKindERC1155 TokenKind = "ERC1155"
)

// TokenGateRule describes an on-chain ownership requirement for
// entering a room. Rules are evaluated on every join attempt because
// balances change between attempts.
type TokenGateRule struct {
	Kind            TokenKind
	ContractAddress string
	MinimumBalance  *big.Int
	TokenID         *big.Int // Required for ERC1155, ignored otherwise
}

// RoomConfig describes a room known ahead of time. Rooms without a
// gate rule are created lazily on first join and need no config entry.
type RoomConfig struct {
	Name string
	Gate *TokenGateRule
}
