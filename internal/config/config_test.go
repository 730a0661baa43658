package config

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/chaintalk/core"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, "general", cfg.DefaultRoom)
	assert.Equal(t, 128, cfg.OutboundBuffer)
	assert.Equal(t, 5, cfg.AuthFailureLimit)
	assert.Equal(t, 5*time.Minute, cfg.ChallengeTTL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.AllowMultiSession)
	assert.Empty(t, cfg.EthereumWSURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":8080")
	t.Setenv("ALLOW_MULTI_SESSION", "true")
	t.Setenv("CHALLENGE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.True(t, cfg.AllowMultiSession)
	assert.Equal(t, 90*time.Second, cfg.ChallengeTTL)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("CHALLENGE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}

func TestGatedRoomConfigs(t *testing.T) {
	cfg := Config{GatedRooms: "whales:erc20:0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984:1000000000000000000000," +
		"collectors:erc1155:0xdAC17F958D2ee523a2206206994597C13D831ec7:1:42"}

	rooms, err := cfg.GatedRoomConfigs()
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, "whales", rooms[0].Name)
	assert.Equal(t, core.TokenKindERC20, rooms[0].Gate.Kind)
	assert.Equal(t, "0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984", rooms[0].Gate.ContractAddress)
	minimum, _ := new(big.Int).SetString("1000000000000000000000", 10)
	assert.Zero(t, rooms[0].Gate.MinimumBalance.Cmp(minimum))
	assert.Nil(t, rooms[0].Gate.TokenID)

	assert.Equal(t, "collectors", rooms[1].Name)
	assert.Equal(t, core.TokenKindERC1155, rooms[1].Gate.Kind)
	assert.Equal(t, big.NewInt(42), rooms[1].Gate.TokenID)
}

func TestGatedRoomConfigsEmpty(t *testing.T) {
	rooms, err := Config{}.GatedRoomConfigs()
	require.NoError(t, err)
	assert.Nil(t, rooms)
}

func TestGatedRoomConfigsRejects(t *testing.T) {
	cases := map[string]string{
		"unknown kind":             "vip:erc777:0xabc:10",
		"missing fields":           "vip:erc20:10",
		"negative minimum":         "vip:erc20:0xabc:-5",
		"token id on erc20":        "vip:erc20:0xabc:10:1",
		"erc1155 without token id": "vip:erc1155:0xabc:10",
		"garbage minimum":          "vip:erc20:0xabc:lots",
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Config{GatedRooms: value}.GatedRoomConfigs()
			assert.Error(t, err)
		})
	}
}
