package events

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/ledger"
)

// LiquidityAdded builds the log emitted after a deposit.
func LiquidityAdded(exchange, provider common.Address, pool ledger.PoolID, reserveBase, reserveEth, share fhe.Euint64) (*types.Log, error) {
	return liquidityLog("LiquidityAdded", exchange, provider, pool, reserveBase, reserveEth, share)
}

// LiquidityRemoved builds the log emitted after a withdrawal. share is the remaining position.
func LiquidityRemoved(exchange, provider common.Address, pool ledger.PoolID, reserveBase, reserveEth, share fhe.Euint64) (*types.Log, error) {
	return liquidityLog("LiquidityRemoved", exchange, provider, pool, reserveBase, reserveEth, share)
}

func liquidityLog(name string, exchange, provider common.Address, pool ledger.PoolID, reserveBase, reserveEth, share fhe.Euint64) (*types.Log, error) {
	parsed, err := ExchangeABI()
	if err != nil {
		return nil, err
	}
	return newLog(exchange, parsed.Events[name],
		[]common.Hash{topicFromAddress(provider), topicFromUint(uint64(pool))},
		[32]byte(reserveBase.Handle), [32]byte(reserveEth.Handle), [32]byte(share.Handle),
	)
}

// Swapped builds the swap log with the transferred input and the paid output.
func Swapped(exchange, trader common.Address, direction ledger.Direction, amountIn, amountOut fhe.Euint64) (*types.Log, error) {
	parsed, err := ExchangeABI()
	if err != nil {
		return nil, err
	}
	return newLog(exchange, parsed.Events["Swapped"],
		[]common.Hash{topicFromAddress(trader), topicFromUint(uint64(direction))},
		[32]byte(amountIn.Handle), [32]byte(amountOut.Handle),
	)
}

// ConfidentialTransfer builds the token transfer log. All fields are indexed.
func ConfidentialTransfer(token, from, to common.Address, amount fhe.Euint64) (*types.Log, error) {
	parsed, err := TokenABI()
	if err != nil {
		return nil, err
	}
	return newLog(token, parsed.Events["ConfidentialTransfer"],
		[]common.Hash{topicFromAddress(from), topicFromAddress(to), common.Hash(amount.Handle)},
	)
}

// OperatorSet builds the operator grant log.
func OperatorSet(token, holder, operator common.Address, until uint64) (*types.Log, error) {
	parsed, err := TokenABI()
	if err != nil {
		return nil, err
	}
	return newLog(token, parsed.Events["OperatorSet"],
		[]common.Hash{topicFromAddress(holder), topicFromAddress(operator)},
		new(big.Int).SetUint64(until),
	)
}

func newLog(address common.Address, event abi.Event, indexed []common.Hash, values ...interface{}) (*types.Log, error) {
	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", event.Name, err)
	}
	topics := make([]common.Hash, 0, len(indexed)+1)
	topics = append(topics, event.ID)
	topics = append(topics, indexed...)
	return &types.Log{
		Address: address,
		Topics:  topics,
		Data:    data,
	}, nil
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func topicFromUint(v uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(v))
}
