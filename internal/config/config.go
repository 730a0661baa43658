package config

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/layer-3/chaintalk/core"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":9000"`
	RedisURL   string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	// Websocket endpoint for the swap listener. Leaving it empty
	// disables chain event ingestion.
	EthereumWSURL string `env:"ETH_WS_URL"`
	// HTTP endpoint for token gate balance checks. Leaving it empty
	// disables gated rooms.
	EthereumHTTPURL string `env:"ETH_HTTP_URL"`

	AllowMultiSession bool `env:"ALLOW_MULTI_SESSION" envDefault:"false"`
	OutboundBuffer    int  `env:"OUTBOUND_BUFFER" envDefault:"128"`
	AuthFailureLimit  int  `env:"AUTH_FAILURE_LIMIT" envDefault:"5"`
	MaxTextLength     int  `env:"MAX_TEXT_LENGTH" envDefault:"1000"`

	ChallengeTTL  time.Duration `env:"CHALLENGE_TTL" envDefault:"5m"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	OracleTimeout time.Duration `env:"ORACLE_TIMEOUT" envDefault:"10s"`

	// DefaultRoom receives chain event broadcasts.
	DefaultRoom string `env:"DEFAULT_ROOM" envDefault:"general"`

	// GatedRooms is a comma-separated list of gate rules, each of the
	// form name:kind:contract:minimum or, for ERC1155,
	// name:kind:contract:minimum:tokenID. Amounts are raw token units.
	GatedRooms string `env:"GATED_ROOMS"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if _, err := cfg.GatedRoomConfigs(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GatedRoomConfigs parses the GATED_ROOMS value into room configs.
func (c Config) GatedRoomConfigs() ([]core.RoomConfig, error) {
	if strings.TrimSpace(c.GatedRooms) == "" {
		return nil, nil
	}

	var rooms []core.RoomConfig
	for _, entry := range strings.Split(c.GatedRooms, ",") {
		room, err := parseGatedRoom(strings.TrimSpace(entry))
		if err != nil {
			return nil, fmt.Errorf("failed to parse gated room %q: %w", entry, err)
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func parseGatedRoom(entry string) (core.RoomConfig, error) {
	parts := strings.Split(entry, ":")
	if len(parts) != 4 && len(parts) != 5 {
		return core.RoomConfig{}, fmt.Errorf("expected 4 or 5 fields, got %d", len(parts))
	}

	kind, err := parseTokenKind(parts[1])
	if err != nil {
		return core.RoomConfig{}, err
	}

	minimum, ok := new(big.Int).SetString(parts[3], 10)
	if !ok || minimum.Sign() < 0 {
		return core.RoomConfig{}, fmt.Errorf("invalid minimum balance %q", parts[3])
	}

	rule := &core.TokenGateRule{
		Kind:            kind,
		ContractAddress: parts[2],
		MinimumBalance:  minimum,
	}

	if kind == core.TokenKindERC1155 {
		if len(parts) != 5 {
			return core.RoomConfig{}, fmt.Errorf("%s rules require a token id", kind)
		}
		tokenID, ok := new(big.Int).SetString(parts[4], 10)
		if !ok {
			return core.RoomConfig{}, fmt.Errorf("invalid token id %q", parts[4])
		}
		rule.TokenID = tokenID
	} else if len(parts) == 5 {
		return core.RoomConfig{}, fmt.Errorf("token id is only valid for %s rules", core.TokenKindERC1155)
	}

	return core.RoomConfig{Name: parts[0], Gate: rule}, nil
}

func parseTokenKind(s string) (core.TokenKind, error) {
	switch core.TokenKind(strings.ToUpper(s)) {
	case core.TokenKindERC20:
		return core.TokenKindERC20, nil
	case core.TokenKindERC721:
		return core.TokenKindERC721, nil
	case core.TokenKindERC1155:
		return core.TokenKindERC1155, nil
	default:
		return "", fmt.Errorf("unknown token kind %q", s)
	}
}
