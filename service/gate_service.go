package service

import (
	"context"
	"fmt"

	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/ports"
)

// GateService decides room-entry eligibility from on-chain balances.
// Rules are re-evaluated on every join attempt; balances change.
type GateService struct {
	oracle ports.BalanceOracle
}

// NewGateService creates a new token gate service
func NewGateService(oracle ports.BalanceOracle) *GateService {
	return &GateService{oracle: oracle}
}

// Check reports whether the identity satisfies the gate rule. A nil
// rule always passes. Oracle failures are returned as errors, never
// treated as a pass.
func (s *GateService) Check(ctx context.Context, identity core.Identity, rule *core.TokenGateRule) (bool, error) {
	if rule == nil {
		return true, nil
	}
	if s.oracle == nil {
		return false, core.ErrOracleUnavailable
	}

	balance, err := s.oracle.BalanceOf(ctx, identity, *rule)
	if err != nil {
		return false, fmt.Errorf("gate check failed: %w", err)
	}

	return balance.Cmp(rule.MinimumBalance) >= 0, nil
}
