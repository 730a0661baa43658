package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/ports"
)

// Minimal ABI fragments for the three balanceOf shapes.
const (
	balanceOfABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

	balanceOfIDABI = `[{"constant":true,"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`
)

// EthOracle answers balance queries through an Ethereum RPC caller.
// ERC20 and ERC721 share the balanceOf(address) shape; ERC1155 takes
// an additional token id.
type EthOracle struct {
	caller     ethereum.ContractCaller
	timeout    time.Duration
	erc20ABI   abi.ABI
	erc1155ABI abi.ABI
}

// NewEthOracle creates a balance oracle backed by the given RPC caller.
// Every query is bounded by the timeout; a timeout or transport error
// surfaces as ErrOracleUnavailable.
func NewEthOracle(caller ethereum.ContractCaller, timeout time.Duration) (ports.BalanceOracle, error) {
	erc20, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse balanceOf ABI: %w", err)
	}
	erc1155, err := abi.JSON(strings.NewReader(balanceOfIDABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC1155 balanceOf ABI: %w", err)
	}

	return &EthOracle{
		caller:     caller,
		timeout:    timeout,
		erc20ABI:   erc20,
		erc1155ABI: erc1155,
	}, nil
}

// BalanceOf queries the holder's balance under the gate rule's contract.
func (o *EthOracle) BalanceOf(ctx context.Context, holder core.Identity, rule core.TokenGateRule) (*big.Int, error) {
	if !common.IsHexAddress(rule.ContractAddress) {
		return nil, fmt.Errorf("%w: bad contract address %q", core.ErrUnsupportedTokenKind, rule.ContractAddress)
	}

	var (
		input []byte
		err   error
		erc   abi.ABI
	)

	holderAddr := common.HexToAddress(holder.String())

	switch rule.Kind {
	case core.TokenKindERC20, core.TokenKindERC721:
		erc = o.erc20ABI
		input, err = erc.Pack("balanceOf", holderAddr)
	case core.TokenKindERC1155:
		tokenID := rule.TokenID
		if tokenID == nil {
			tokenID = new(big.Int)
		}
		erc = o.erc1155ABI
		input, err = erc.Pack("balanceOf", holderAddr, tokenID)
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedTokenKind, rule.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	contract := common.HexToAddress(rule.ContractAddress)
	output, err := o.caller.CallContract(callCtx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrOracleUnavailable, err)
	}

	results, err := erc.Unpack("balanceOf", output)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrOracleUnavailable, err)
	}

	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected balanceOf return type", core.ErrOracleUnavailable)
	}
	return balance, nil
}
