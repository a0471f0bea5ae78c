// Package engine implements the fixed-rate confidential liquidity and swap logic over
// encrypted reserves. No code path branches on an encrypted value: every limit is applied
// with Min, so a trade that cannot be filled in full is clamped instead of reverted.
package engine

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/acl"
	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/events"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/ledger"
)

// BaseUnitsPerEth is the fixed exchange rate of both pools.
const BaseUnitsPerEth uint64 = 3000

// maxEthQuote is the largest ETH amount whose base quote fits 64 bits.
const maxEthQuote = math.MaxUint64 / BaseUnitsPerEth

// Token is the confidential token surface the engine needs. Both calls return the amount
// actually transferred, which may be an encrypted zero.
type Token interface {
	Address() common.Address
	TransferFrom(tx *chain.Tx, spender, from, to common.Address, amount fhe.Euint64) (fhe.Euint64, error)
	Transfer(tx *chain.Tx, from, to common.Address, amount fhe.Euint64) (fhe.Euint64, error)
}

// Tokens are the three assets the pools trade.
type Tokens struct {
	USDC Token
	USDT Token
	ETH  Token
}

// Base returns the base asset of pool.
func (t Tokens) Base(pool ledger.PoolID) Token {
	if pool == ledger.PoolUSDT {
		return t.USDT
	}
	return t.USDC
}

// LiquidityReceipt reports the handles produced by a liquidity change.
type LiquidityReceipt struct {
	Pool       ledger.PoolID  `json:"pool"`
	Provider   common.Address `json:"provider"`
	BaseAmount fhe.Euint64    `json:"base_amount"`
	EthAmount  fhe.Euint64    `json:"eth_amount"`
	Share      fhe.Euint64    `json:"share"`
	Position   fhe.Euint64    `json:"position"`
}

// SwapReceipt reports the transferred input and the paid output.
type SwapReceipt struct {
	Direction ledger.Direction `json:"direction"`
	Trader    common.Address   `json:"trader"`
	AmountIn  fhe.Euint64      `json:"amount_in"`
	AmountOut fhe.Euint64      `json:"amount_out"`
}

// Engine runs as the exchange account. Callers validate inputs and grant them to the
// exchange before calling in.
type Engine struct {
	address common.Address
	arith   *fhe.Arith
	acl     *acl.ACL
	relay   *acl.Relay
	ledger  *ledger.Ledger
	tokens  Tokens
	logger  *zap.Logger
}

func New(address common.Address, backend fhe.Backend, table *acl.ACL, meter *fhe.Meter, l *ledger.Ledger, tokens Tokens, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		address: address,
		arith:   fhe.NewArith(backend, table, address, meter),
		acl:     table,
		relay:   acl.NewRelay(table, backend, logger),
		ledger:  l,
		tokens:  tokens,
		logger:  logger,
	}
}

func (e *Engine) Address() common.Address {
	return e.address
}

func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// AddLiquidity pulls both assets from provider and credits the share
// min(eth, base/BaseUnitsPerEth), computed from the amounts actually transferred.
func (e *Engine) AddLiquidity(tx *chain.Tx, pool ledger.PoolID, encBase, encEth fhe.Euint64, provider common.Address) (LiquidityReceipt, error) {
	current, err := e.ledger.GetPool(pool)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	position, err := e.ledger.GetPosition(pool, provider)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	baseToken := e.tokens.Base(pool)

	tBase, err := e.pull(tx, baseToken, provider, encBase)
	if err != nil {
		return LiquidityReceipt{}, fmt.Errorf("pull base: %w", err)
	}
	tEth, err := e.pull(tx, e.tokens.ETH, provider, encEth)
	if err != nil {
		return LiquidityReceipt{}, fmt.Errorf("pull eth: %w", err)
	}

	ethEquivalent, err := e.arith.DivConst(tBase, BaseUnitsPerEth)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	share, err := e.arith.Min(tEth, ethEquivalent)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	next := ledger.Pool{}
	if next.ReserveBase, err = e.arith.Add(current.ReserveBase, tBase); err != nil {
		return LiquidityReceipt{}, err
	}
	if next.ReserveEth, err = e.arith.Add(current.ReserveEth, tEth); err != nil {
		return LiquidityReceipt{}, err
	}
	nextShare, err := e.arith.Add(position.Share, share)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	if err := e.commit(tx, pool, next, provider); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := e.ledger.CommitPosition(tx, pool, provider, ledger.Position{Share: nextShare}); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := e.grant(tx, []fhe.Euint64{nextShare, share}, e.address, provider); err != nil {
		return LiquidityReceipt{}, err
	}

	log, err := events.LiquidityAdded(e.address, provider, pool, next.ReserveBase, next.ReserveEth, nextShare)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	tx.Emit(log)

	e.logger.Info("liquidity added",
		zap.String("pool", pool.String()),
		zap.String("provider", provider.Hex()),
		zap.String("share", share.Hex()),
	)
	return LiquidityReceipt{
		Pool:       pool,
		Provider:   provider,
		BaseAmount: tBase,
		EthAmount:  tEth,
		Share:      share,
		Position:   nextShare,
	}, nil
}

// RemoveLiquidity burns min(encShare, position) and pays out the matching amounts at the
// fixed rate, each capped by its reserve.
func (e *Engine) RemoveLiquidity(tx *chain.Tx, pool ledger.PoolID, encShare fhe.Euint64, provider common.Address) (LiquidityReceipt, error) {
	current, err := e.ledger.GetPool(pool)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	position, err := e.ledger.GetPosition(pool, provider)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	burn, err := e.arith.Min(encShare, position.Share)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	ethOut, err := e.arith.Min(burn, current.ReserveEth)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	baseWanted, err := e.arith.MulConst(burn, BaseUnitsPerEth)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	baseOut, err := e.arith.Min(baseWanted, current.ReserveBase)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	paidBase, err := e.pay(tx, e.tokens.Base(pool), provider, baseOut)
	if err != nil {
		return LiquidityReceipt{}, fmt.Errorf("pay base: %w", err)
	}
	paidEth, err := e.pay(tx, e.tokens.ETH, provider, ethOut)
	if err != nil {
		return LiquidityReceipt{}, fmt.Errorf("pay eth: %w", err)
	}

	next := ledger.Pool{}
	if next.ReserveBase, err = e.arith.Sub(current.ReserveBase, paidBase); err != nil {
		return LiquidityReceipt{}, err
	}
	if next.ReserveEth, err = e.arith.Sub(current.ReserveEth, paidEth); err != nil {
		return LiquidityReceipt{}, err
	}
	nextShare, err := e.arith.Sub(position.Share, burn)
	if err != nil {
		return LiquidityReceipt{}, err
	}

	if err := e.commit(tx, pool, next, provider); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := e.ledger.CommitPosition(tx, pool, provider, ledger.Position{Share: nextShare}); err != nil {
		return LiquidityReceipt{}, err
	}
	if err := e.grant(tx, []fhe.Euint64{nextShare, burn, paidBase, paidEth}, e.address, provider); err != nil {
		return LiquidityReceipt{}, err
	}

	log, err := events.LiquidityRemoved(e.address, provider, pool, next.ReserveBase, next.ReserveEth, nextShare)
	if err != nil {
		return LiquidityReceipt{}, err
	}
	tx.Emit(log)

	e.logger.Info("liquidity removed",
		zap.String("pool", pool.String()),
		zap.String("provider", provider.Hex()),
	)
	return LiquidityReceipt{
		Pool:       pool,
		Provider:   provider,
		BaseAmount: paidBase,
		EthAmount:  paidEth,
		Share:      burn,
		Position:   nextShare,
	}, nil
}

// Swap trades at the fixed rate. The output is capped by the opposite reserve.
func (e *Engine) Swap(tx *chain.Tx, direction ledger.Direction, encIn fhe.Euint64, trader common.Address) (SwapReceipt, error) {
	if !direction.Valid() {
		return SwapReceipt{}, fmt.Errorf("%w: %d", ledger.ErrUnknownDirection, uint8(direction))
	}
	pool := direction.Pool()
	current, err := e.ledger.GetPool(pool)
	if err != nil {
		return SwapReceipt{}, err
	}

	inToken, outToken := e.tokens.Base(pool), e.tokens.ETH
	reserveIn, reserveOut := current.ReserveBase, current.ReserveEth
	if !direction.BaseIn() {
		inToken, outToken = outToken, inToken
		reserveIn, reserveOut = reserveOut, reserveIn
	}

	tIn, err := e.pull(tx, inToken, trader, encIn)
	if err != nil {
		return SwapReceipt{}, fmt.Errorf("pull input: %w", err)
	}

	var quoted fhe.Euint64
	if direction.BaseIn() {
		quoted, err = e.arith.DivConst(tIn, BaseUnitsPerEth)
	} else {
		quoted, err = e.quoteBase(tIn)
	}
	if err != nil {
		return SwapReceipt{}, err
	}
	out, err := e.arith.Min(quoted, reserveOut)
	if err != nil {
		return SwapReceipt{}, err
	}

	paid, err := e.pay(tx, outToken, trader, out)
	if err != nil {
		return SwapReceipt{}, fmt.Errorf("pay output: %w", err)
	}

	nextIn, err := e.arith.Add(reserveIn, tIn)
	if err != nil {
		return SwapReceipt{}, err
	}
	nextOut, err := e.arith.Sub(reserveOut, paid)
	if err != nil {
		return SwapReceipt{}, err
	}

	next := ledger.Pool{ReserveBase: nextIn, ReserveEth: nextOut}
	if !direction.BaseIn() {
		next = ledger.Pool{ReserveBase: nextOut, ReserveEth: nextIn}
	}
	if err := e.commit(tx, pool, next, trader); err != nil {
		return SwapReceipt{}, err
	}
	if err := e.grant(tx, []fhe.Euint64{tIn, paid}, e.address, trader); err != nil {
		return SwapReceipt{}, err
	}

	log, err := events.Swapped(e.address, trader, direction, tIn, paid)
	if err != nil {
		return SwapReceipt{}, err
	}
	tx.Emit(log)

	e.logger.Info("swapped",
		zap.String("direction", direction.String()),
		zap.String("trader", trader.Hex()),
		zap.String("amount_out", paid.Hex()),
	)
	return SwapReceipt{Direction: direction, Trader: trader, AmountIn: tIn, AmountOut: paid}, nil
}

// quoteBase converts ETH to base units. Quotes past 64 bits saturate instead of
// wrapping, so the reserve clamp pays out what the pool holds.
func (e *Engine) quoteBase(ethIn fhe.Euint64) (fhe.Euint64, error) {
	limit, err := e.arith.AsEuint64(maxEthQuote)
	if err != nil {
		return fhe.Euint64{}, err
	}
	fits, err := e.arith.LessOrEqual(ethIn, limit)
	if err != nil {
		return fhe.Euint64{}, err
	}
	product, err := e.arith.MulConst(ethIn, BaseUnitsPerEth)
	if err != nil {
		return fhe.Euint64{}, err
	}
	ceiling, err := e.arith.AsEuint64(math.MaxUint64)
	if err != nil {
		return fhe.Euint64{}, err
	}
	return e.arith.Select(fits, product, ceiling)
}

// pull moves amount from user to the exchange and returns what was transferred.
func (e *Engine) pull(tx *chain.Tx, token Token, user common.Address, amount fhe.Euint64) (fhe.Euint64, error) {
	e.acl.AllowTransient(amount.Handle, token.Address())
	return token.TransferFrom(tx, e.address, user, e.address, amount)
}

// pay moves amount from the exchange to user and returns what was transferred.
func (e *Engine) pay(tx *chain.Tx, token Token, user common.Address, amount fhe.Euint64) (fhe.Euint64, error) {
	e.acl.AllowTransient(amount.Handle, token.Address())
	return token.Transfer(tx, e.address, user, amount)
}

// commit stores the new reserves and shares them with the exchange and the caller.
func (e *Engine) commit(tx *chain.Tx, pool ledger.PoolID, next ledger.Pool, caller common.Address) error {
	if err := e.ledger.CommitPool(tx, pool, next); err != nil {
		return err
	}
	return e.grant(tx, []fhe.Euint64{next.ReserveBase, next.ReserveEth}, e.address, caller)
}

func (e *Engine) grant(tx *chain.Tx, handles []fhe.Euint64, grantees ...common.Address) error {
	for _, h := range handles {
		if err := e.relay.Grant(tx, h.Handle, grantees...); err != nil {
			return err
		}
	}
	return nil
}
