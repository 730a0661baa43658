package ports

import (
	"context"
	"math/big"

	"github.com/layer-3/chaintalk/core"
)

// BalanceOracle answers on-chain balance queries for token gate checks.
// Implementations must surface transport failures as errors, never as a
// zero balance.
type BalanceOracle interface {
	BalanceOf(ctx context.Context, holder core.Identity, rule core.TokenGateRule) (*big.Int, error)
}
