package chain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/fhe"
)

var ErrDiscarded = errors.New("call discarded before execution")

// Config holds runtime settings for the execution environment.
type Config struct {
	ChainID uint64
	Clock   func() time.Time
	Meter   *fhe.Meter
}

// State is the exportable progress of the runtime.
type State struct {
	BlockNumber uint64 `json:"block_number"`
	Nonce       uint64 `json:"nonce"`
}

// Runtime serializes state-mutating calls. Each committed call is mined into its own block.
type Runtime struct {
	chainID uint64
	clock   func() time.Time
	meter   *fhe.Meter
	logger  *zap.Logger

	mu          sync.RWMutex
	blockNumber uint64
	nonce       uint64
	finalizers  []func()
	subscribers []func(*Receipt)
}

// NewRuntime builds a Runtime with its dependencies.
func NewRuntime(cfg Config, logger *zap.Logger) *Runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Runtime{
		chainID: cfg.ChainID,
		clock:   clock,
		meter:   cfg.Meter,
		logger:  logger,
	}
}

func (r *Runtime) ChainID() uint64 {
	return r.chainID
}

// BlockNumber returns the number of the last mined block.
func (r *Runtime) BlockNumber() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.blockNumber
}

// Now returns the timestamp the next call would observe.
func (r *Runtime) Now() uint64 {
	return uint64(r.clock().Unix())
}

// OnFinish registers fn to run after every call, committed or not.
func (r *Runtime) OnFinish(fn func()) {
	r.mu.Lock()
	r.finalizers = append(r.finalizers, fn)
	r.mu.Unlock()
}

// Subscribe registers fn to receive every committed receipt. fn runs while the runtime
// lock is held and must not call back into the runtime.
func (r *Runtime) Subscribe(fn func(*Receipt)) {
	r.mu.Lock()
	r.subscribers = append(r.subscribers, fn)
	r.mu.Unlock()
}

// Execute runs fn as one atomic unit. When fn fails every journaled change is undone and
// the error is returned; nothing of the call remains observable.
func (r *Runtime) Execute(ctx context.Context, from, to common.Address, fn func(tx *Tx) error) (receipt *Receipt, err error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrDiscarded, ctx.Err())
	default:
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx := r.newTx(from, to)
	r.meter.Reset()

	defer func() {
		for _, finalize := range r.finalizers {
			finalize()
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			tx.revert()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.revert()
		r.logger.Debug("call reverted",
			zap.String("tx", tx.Hash.Hex()),
			zap.String("from", from.Hex()),
			zap.String("to", to.Hex()),
			zap.Error(err),
		)
		return nil, err
	}

	r.blockNumber = tx.BlockNumber
	r.nonce++
	receipt = &Receipt{
		TxHash:      tx.Hash,
		BlockNumber: tx.BlockNumber,
		BlockHash:   tx.BlockHash,
		Time:        tx.Time,
		From:        from,
		To:          to,
		Status:      types.ReceiptStatusSuccessful,
		Logs:        tx.logs,
		FHECost:     r.meter.Used(),
		FHEOps:      r.meter.Ops(),
	}
	for _, sub := range r.subscribers {
		sub(receipt)
	}

	r.logger.Debug("call committed",
		zap.String("tx", tx.Hash.Hex()),
		zap.Uint64("block", tx.BlockNumber),
		zap.Int("logs", len(tx.logs)),
		zap.Uint64("fhe_cost", receipt.FHECost),
	)
	return receipt, nil
}

// View runs fn against committed state only.
func (r *Runtime) View(fn func() error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn()
}

// Export returns the runtime progress for snapshots.
func (r *Runtime) Export() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return State{BlockNumber: r.blockNumber, Nonce: r.nonce}
}

// Freeze runs fn with no call in flight and passes it the current progress. Other
// components may be exported from fn for a consistent snapshot.
func (r *Runtime) Freeze(fn func(State) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fn(State{BlockNumber: r.blockNumber, Nonce: r.nonce})
}

// Import restores runtime progress.
func (r *Runtime) Import(state State) {
	r.mu.Lock()
	r.blockNumber = state.BlockNumber
	r.nonce = state.Nonce
	r.mu.Unlock()
}

func (r *Runtime) newTx(from, to common.Address) *Tx {
	var buf [24]byte
	binary.BigEndian.PutUint64(buf[0:8], r.chainID)
	binary.BigEndian.PutUint64(buf[8:16], r.nonce)
	binary.BigEndian.PutUint64(buf[16:24], r.blockNumber+1)
	hash := crypto.Keccak256Hash(buf[:], from.Bytes(), to.Bytes())

	var num [8]byte
	binary.BigEndian.PutUint64(num[:], r.blockNumber+1)
	return &Tx{
		Hash:        hash,
		From:        from,
		To:          to,
		ChainID:     r.chainID,
		BlockNumber: r.blockNumber + 1,
		BlockHash:   crypto.Keccak256Hash(num[:], hash.Bytes()),
		Time:        uint64(r.clock().Unix()),
	}
}
