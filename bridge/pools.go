package bridge

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// TokenInfo describes one side of a monitored pool.
type TokenInfo struct {
	Symbol   string
	Decimals int32
}

// PoolInfo is the static metadata for a monitored Uniswap V3 pool.
type PoolInfo struct {
	Token0 TokenInfo
	Token1 TokenInfo
}

var (
	weth = TokenInfo{Symbol: "WETH", Decimals: 18}
	usdc = TokenInfo{Symbol: "USDC", Decimals: 6}
	wbtc = TokenInfo{Symbol: "WBTC", Decimals: 8}
)

// DefaultPools returns the mainnet pools monitored out of the box:
// the USDC/WETH 0.05% and 0.3% pools and the WBTC/WETH 0.3% pool.
func DefaultPools() map[common.Address]PoolInfo {
	return map[common.Address]PoolInfo{
		common.HexToAddress("0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640"): {Token0: usdc, Token1: weth},
		common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8"): {Token0: usdc, Token1: weth},
		common.HexToAddress("0xCBCdF9626bC03E24f779434178A73a0B4bad62eD"): {Token0: wbtc, Token1: weth},
	}
}

// DefaultThresholds returns the per-symbol minimum swap size, in human
// units, below which a swap is not broadcast.
func DefaultThresholds() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"WETH": decimal.NewFromInt(1),
		"USDC": decimal.NewFromInt(10_000),
		"WBTC": decimal.RequireFromString("0.1"),
	}
}

// defaultThreshold applies to tokens without a configured entry.
var defaultThreshold = decimal.NewFromInt(1_000)

// humanAmount scales a raw token amount into human units.
func humanAmount(raw *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).Abs(raw), -decimals)
}

// FormatAmount renders a raw token amount as "12.5 WETH".
func FormatAmount(raw *big.Int, token TokenInfo) string {
	return humanAmount(raw, token.Decimals).String() + " " + token.Symbol
}
