package engine

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/input"
	"hiddenLiquidity/internal/ledger"
)

// Exchange is the externally callable surface. Each mutating call verifies its encrypted
// inputs and runs the engine inside one atomic unit.
type Exchange struct {
	engine   *Engine
	runtime  *chain.Runtime
	verifier *input.Verifier
	logger   *zap.Logger
}

func NewExchange(engine *Engine, runtime *chain.Runtime, verifier *input.Verifier, logger *zap.Logger) *Exchange {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exchange{engine: engine, runtime: runtime, verifier: verifier, logger: logger}
}

func (x *Exchange) Address() common.Address {
	return x.engine.Address()
}

// AddLiquidity deposits into pool. Both handles may share one proof.
func (x *Exchange) AddLiquidity(ctx context.Context, sender common.Address, pool ledger.PoolID, baseHandle fhe.Handle, baseProof []byte, ethHandle fhe.Handle, ethProof []byte) (*chain.Receipt, LiquidityReceipt, error) {
	if !pool.Valid() {
		return nil, LiquidityReceipt{}, fmt.Errorf("%w: %d", ledger.ErrUnknownPool, uint8(pool))
	}
	var out LiquidityReceipt
	receipt, err := x.runtime.Execute(ctx, sender, x.Address(), func(tx *chain.Tx) error {
		encBase, err := x.verifier.Verify(tx, baseHandle, baseProof, sender, x.Address())
		if err != nil {
			return err
		}
		encEth, err := x.verifier.Verify(tx, ethHandle, ethProof, sender, x.Address())
		if err != nil {
			return err
		}
		out, err = x.engine.AddLiquidity(tx, pool, encBase, encEth, sender)
		return err
	})
	if err != nil {
		return nil, LiquidityReceipt{}, fmt.Errorf("add liquidity: %w", err)
	}
	return receipt, out, nil
}

func (x *Exchange) RemoveLiquidity(ctx context.Context, sender common.Address, pool ledger.PoolID, shareHandle fhe.Handle, proof []byte) (*chain.Receipt, LiquidityReceipt, error) {
	if !pool.Valid() {
		return nil, LiquidityReceipt{}, fmt.Errorf("%w: %d", ledger.ErrUnknownPool, uint8(pool))
	}
	var out LiquidityReceipt
	receipt, err := x.runtime.Execute(ctx, sender, x.Address(), func(tx *chain.Tx) error {
		encShare, err := x.verifier.Verify(tx, shareHandle, proof, sender, x.Address())
		if err != nil {
			return err
		}
		out, err = x.engine.RemoveLiquidity(tx, pool, encShare, sender)
		return err
	})
	if err != nil {
		return nil, LiquidityReceipt{}, fmt.Errorf("remove liquidity: %w", err)
	}
	return receipt, out, nil
}

func (x *Exchange) Swap(ctx context.Context, sender common.Address, direction ledger.Direction, amountHandle fhe.Handle, proof []byte) (*chain.Receipt, SwapReceipt, error) {
	if !direction.Valid() {
		return nil, SwapReceipt{}, fmt.Errorf("%w: %d", ledger.ErrUnknownDirection, uint8(direction))
	}
	var out SwapReceipt
	receipt, err := x.runtime.Execute(ctx, sender, x.Address(), func(tx *chain.Tx) error {
		encIn, err := x.verifier.Verify(tx, amountHandle, proof, sender, x.Address())
		if err != nil {
			return err
		}
		out, err = x.engine.Swap(tx, direction, encIn, sender)
		return err
	})
	if err != nil {
		return nil, SwapReceipt{}, fmt.Errorf("swap %s: %w", direction, err)
	}
	return receipt, out, nil
}

// GetPool returns the current reserve handles. Reading never changes state. A pool
// nobody has provided to reads as the uninitialized handle.
func (x *Exchange) GetPool(pool ledger.PoolID) (reserveBase, reserveEth fhe.Euint64, err error) {
	err = x.runtime.View(func() error {
		p, err := x.engine.Ledger().GetPool(pool)
		if err != nil {
			return err
		}
		reserveBase, reserveEth = x.unset(p.ReserveBase), x.unset(p.ReserveEth)
		return nil
	})
	return reserveBase, reserveEth, err
}

// GetPosition returns the share handles of user in the USDC and USDT pools. Pools the
// user never provided to read as the uninitialized handle.
func (x *Exchange) GetPosition(user common.Address) (shareUSDC, shareUSDT fhe.Euint64) {
	_ = x.runtime.View(func() error {
		positions := x.engine.Ledger().Positions(user)
		shareUSDC, shareUSDT = x.unset(positions[ledger.PoolUSDC].Share), x.unset(positions[ledger.PoolUSDT].Share)
		return nil
	})
	return shareUSDC, shareUSDT
}

// unset hides the genesis zero, which only the exchange may use, behind the zero handle
// every reader decrypts to 0.
func (x *Exchange) unset(v fhe.Euint64) fhe.Euint64 {
	if v == x.engine.Ledger().Zero() {
		return fhe.Euint64{}
	}
	return v
}
