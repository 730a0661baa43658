package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/ports"
)

// swapEventABI is the Uniswap V3 pool Swap event fragment.
const swapEventABI = `[{"anonymous":false,"inputs":[
	{"indexed":true,"name":"sender","type":"address"},
	{"indexed":true,"name":"recipient","type":"address"},
	{"indexed":false,"name":"amount0","type":"int256"},
	{"indexed":false,"name":"amount1","type":"int256"},
	{"indexed":false,"name":"sqrtPriceX96","type":"uint160"},
	{"indexed":false,"name":"liquidity","type":"uint128"},
	{"indexed":false,"name":"tick","type":"int24"}],
	"name":"Swap","type":"event"}]`

// SwapEventType tags chain events produced by this listener.
const SwapEventType = "UniswapV3Swap"

var unknownToken = TokenInfo{Symbol: "Unknown", Decimals: 18}

// LogSource is the slice of the Ethereum client the listener needs.
// Satisfied by ethclient.Client over a websocket endpoint.
type LogSource interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Listener subscribes to Swap logs on a set of Uniswap V3 pools,
// filters out small swaps and publishes the rest as chain events.
// It reconnects with exponential backoff when the subscription drops,
// resuming from the last block it saw.
type Listener struct {
	source     LogSource
	publisher  ports.ChainEventPublisher
	pools      map[common.Address]PoolInfo
	thresholds map[string]decimal.Decimal
	logger     watermill.LoggerAdapter

	swapABI   abi.ABI
	swapTopic common.Hash

	connected atomic.Bool
	lastBlock atomic.Uint64
}

// NewListener creates a listener for the given pools. Nil pools or
// thresholds fall back to the defaults.
func NewListener(
	source LogSource,
	publisher ports.ChainEventPublisher,
	pools map[common.Address]PoolInfo,
	thresholds map[string]decimal.Decimal,
	logger watermill.LoggerAdapter,
) (*Listener, error) {
	parsed, err := abi.JSON(strings.NewReader(swapEventABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse swap event ABI: %w", err)
	}
	if pools == nil {
		pools = DefaultPools()
	}
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Listener{
		source:     source,
		publisher:  publisher,
		pools:      pools,
		thresholds: thresholds,
		logger:     logger,
		swapABI:    parsed,
		swapTopic:  parsed.Events["Swap"].ID,
	}, nil
}

// Connected reports whether a live log subscription is in place.
func (l *Listener) Connected() bool {
	return l.connected.Load()
}

// Run streams swap logs until the context is cancelled. Subscription
// failures are retried with exponential backoff rather than returned.
func (l *Listener) Run(ctx context.Context) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	for {
		err := l.stream(ctx, policy.Reset)
		l.connected.Store(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := policy.NextBackOff()
		l.logger.Error("chain log subscription dropped", err, watermill.LogFields{
			"retry_in": wait.String(),
		})
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *Listener) stream(ctx context.Context, onConnect func()) error {
	query := ethereum.FilterQuery{
		Addresses: l.poolAddresses(),
		Topics:    [][]common.Hash{{l.swapTopic}},
	}
	if from := l.lastBlock.Load(); from > 0 {
		query.FromBlock = new(big.Int).SetUint64(from)
	}

	logs := make(chan types.Log, 64)
	sub, err := l.source.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return fmt.Errorf("failed to subscribe to swap logs: %w", err)
	}
	defer sub.Unsubscribe()

	l.connected.Store(true)
	onConnect()
	l.logger.Info("chain log subscription established", watermill.LogFields{
		"pools":      len(l.pools),
		"from_block": l.lastBlock.Load(),
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return err
		case lg := <-logs:
			l.handleLog(ctx, lg)
		}
	}
}

func (l *Listener) poolAddresses() []common.Address {
	addrs := make([]common.Address, 0, len(l.pools))
	for addr := range l.pools {
		addrs = append(addrs, addr)
	}
	return addrs
}

type swapLog struct {
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         *big.Int
}

func (l *Listener) handleLog(ctx context.Context, lg types.Log) {
	if lg.BlockNumber > 0 {
		l.lastBlock.Store(lg.BlockNumber)
	}
	if lg.Removed || len(lg.Topics) < 3 || lg.Topics[0] != l.swapTopic {
		return
	}

	swap, err := l.decodeSwap(lg)
	if err != nil {
		l.logger.Error("undecodable swap log", err, watermill.LogFields{
			"tx": lg.TxHash.Hex(),
		})
		return
	}

	info, ok := l.pools[lg.Address]
	if !ok {
		info = PoolInfo{Token0: unknownToken, Token1: unknownToken}
	}
	if !l.exceedsThreshold(swap.Amount0, info.Token0) && !l.exceedsThreshold(swap.Amount1, info.Token1) {
		return
	}

	details, err := json.Marshal(core.SwapDetails{
		Sender:       swap.Sender.Hex(),
		Recipient:    swap.Recipient.Hex(),
		Amount0:      swap.Amount0.String(),
		Amount1:      swap.Amount1.String(),
		SqrtPriceX96: swap.SqrtPriceX96.String(),
		Liquidity:    swap.Liquidity.String(),
		Tick:         int32(swap.Tick.Int64()),
		PoolAddress:  lg.Address.Hex(),
		Token0:       info.Token0.Symbol,
		Token1:       info.Token1.Symbol,
	})
	if err != nil {
		l.logger.Error("failed to marshal swap details", err, nil)
		return
	}

	event := core.NewChainEvent(SwapEventType, lg.TxHash.Hex(), lg.BlockNumber, details)
	if err := l.publisher.PublishChainEvent(ctx, event); err != nil {
		l.logger.Error("failed to publish chain event", err, watermill.LogFields{
			"tx": lg.TxHash.Hex(),
		})
		return
	}

	l.logger.Info("published large swap", watermill.LogFields{
		"pool":    lg.Address.Hex(),
		"amount0": FormatAmount(swap.Amount0, info.Token0),
		"amount1": FormatAmount(swap.Amount1, info.Token1),
		"tx":      lg.TxHash.Hex(),
	})
}

func (l *Listener) decodeSwap(lg types.Log) (swapLog, error) {
	values, err := l.swapABI.Unpack("Swap", lg.Data)
	if err != nil {
		return swapLog{}, fmt.Errorf("failed to unpack swap data: %w", err)
	}
	if len(values) != 5 {
		return swapLog{}, fmt.Errorf("unexpected swap field count %d", len(values))
	}

	swap := swapLog{
		Sender:    common.BytesToAddress(lg.Topics[1].Bytes()),
		Recipient: common.BytesToAddress(lg.Topics[2].Bytes()),
	}
	var ok bool
	if swap.Amount0, ok = values[0].(*big.Int); !ok {
		return swapLog{}, errors.New("amount0 is not an integer")
	}
	if swap.Amount1, ok = values[1].(*big.Int); !ok {
		return swapLog{}, errors.New("amount1 is not an integer")
	}
	if swap.SqrtPriceX96, ok = values[2].(*big.Int); !ok {
		return swapLog{}, errors.New("sqrtPriceX96 is not an integer")
	}
	if swap.Liquidity, ok = values[3].(*big.Int); !ok {
		return swapLog{}, errors.New("liquidity is not an integer")
	}
	if swap.Tick, ok = values[4].(*big.Int); !ok {
		return swapLog{}, errors.New("tick is not an integer")
	}
	return swap, nil
}

// exceedsThreshold compares the swap amount, scaled to human units,
// against the per-token minimum.
func (l *Listener) exceedsThreshold(raw *big.Int, token TokenInfo) bool {
	threshold, ok := l.thresholds[token.Symbol]
	if !ok {
		threshold = defaultThreshold
	}
	return humanAmount(raw, token.Decimals).GreaterThanOrEqual(threshold)
}
