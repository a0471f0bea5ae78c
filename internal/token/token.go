// Package token implements confidential fungible tokens with encrypted balances and
// time-bounded operators.
package token

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/acl"
	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/events"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/model"
)

var ErrUnauthorizedOperator = errors.New("unauthorized operator")

// Config describes one token deployment.
type Config struct {
	Address  common.Address
	Name     string
	Symbol   string
	Decimals uint8
}

// ConfidentialToken keeps encrypted balances. Transfers never reveal whether the sender
// could pay: a shortfall moves an encrypted zero.
type ConfidentialToken struct {
	cfg    Config
	arith  *fhe.Arith
	acl    *acl.ACL
	relay  *acl.Relay
	logger *zap.Logger

	mu        sync.RWMutex
	balances  map[common.Address]fhe.Euint64
	operators map[common.Address]map[common.Address]uint64
}

func New(cfg Config, backend fhe.Backend, table *acl.ACL, meter *fhe.Meter, logger *zap.Logger) *ConfidentialToken {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConfidentialToken{
		cfg:       cfg,
		arith:     fhe.NewArith(backend, table, cfg.Address, meter),
		acl:       table,
		relay:     acl.NewRelay(table, backend, logger),
		logger:    logger.With(zap.String("token", cfg.Symbol)),
		balances:  make(map[common.Address]fhe.Euint64),
		operators: make(map[common.Address]map[common.Address]uint64),
	}
}

func (t *ConfidentialToken) Address() common.Address {
	return t.cfg.Address
}

func (t *ConfidentialToken) Symbol() string {
	return t.cfg.Symbol
}

// Meta returns the public description of the token.
func (t *ConfidentialToken) Meta() model.TokenMeta {
	return model.TokenMeta{
		Address:  t.cfg.Address.Hex(),
		Decimals: t.cfg.Decimals,
		Symbol:   t.cfg.Symbol,
		Name:     t.cfg.Name,
	}
}

// BalanceOf returns the balance handle, or the zero handle for an account that never held
// the token.
func (t *ConfidentialToken) BalanceOf(holder common.Address) fhe.Euint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[holder]
}

// Mint credits a public amount to to.
func (t *ConfidentialToken) Mint(tx *chain.Tx, to common.Address, amount uint64) error {
	if to == (common.Address{}) {
		return fmt.Errorf("mint to zero address")
	}
	minted, err := t.arith.AsEuint64(amount)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	current, err := t.balanceOrZero(to)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	next, err := t.arith.Add(current, minted)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	t.setBalance(tx, to, next)

	if err := t.relay.Grant(tx, next.Handle, t.cfg.Address, to); err != nil {
		return err
	}
	if err := t.relay.Grant(tx, minted.Handle, t.cfg.Address, to); err != nil {
		return err
	}
	return t.emitTransfer(tx, common.Address{}, to, minted)
}

// SetOperator lets spender move holder's funds until the given unix time.
func (t *ConfidentialToken) SetOperator(tx *chain.Tx, holder, spender common.Address, until uint64) error {
	t.mu.Lock()
	spenders, ok := t.operators[holder]
	if !ok {
		spenders = make(map[common.Address]uint64)
		t.operators[holder] = spenders
	}
	prev, existed := spenders[spender]
	spenders[spender] = until
	t.mu.Unlock()

	tx.Journal(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if existed {
			t.operators[holder][spender] = prev
			return
		}
		delete(t.operators[holder], spender)
		if len(t.operators[holder]) == 0 {
			delete(t.operators, holder)
		}
	})

	log, err := events.OperatorSet(t.cfg.Address, holder, spender, until)
	if err != nil {
		return err
	}
	tx.Emit(log)
	t.logger.Debug("operator set", zap.String("holder", holder.Hex()), zap.String("operator", spender.Hex()), zap.Uint64("until", until))
	return nil
}

// IsOperator reports whether spender may move holder's funds at time now.
func (t *ConfidentialToken) IsOperator(holder, spender common.Address, now uint64) bool {
	if holder == spender {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	until, ok := t.operators[holder][spender]
	return ok && now <= until
}

// TransferFrom moves amount from from to to on behalf of spender and returns the
// amount actually transferred. spender must be an operator of from and hold a grant
// on amount.
func (t *ConfidentialToken) TransferFrom(tx *chain.Tx, spender, from, to common.Address, amount fhe.Euint64) (fhe.Euint64, error) {
	if !t.IsOperator(from, spender, tx.Time) {
		return fhe.Euint64{}, fmt.Errorf("%w: %s for %s", ErrUnauthorizedOperator, spender.Hex(), from.Hex())
	}
	return t.transfer(tx, spender, from, to, amount)
}

// Transfer moves amount from the caller's own balance.
func (t *ConfidentialToken) Transfer(tx *chain.Tx, from, to common.Address, amount fhe.Euint64) (fhe.Euint64, error) {
	return t.transfer(tx, from, from, to, amount)
}

func (t *ConfidentialToken) transfer(tx *chain.Tx, caller, from, to common.Address, amount fhe.Euint64) (fhe.Euint64, error) {
	if to == (common.Address{}) {
		return fhe.Euint64{}, fmt.Errorf("transfer to zero address")
	}
	if !t.acl.IsAllowed(amount.Handle, caller) {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w: %s for %s", fhe.ErrNotAllowed, amount.Hex(), caller.Hex())
	}

	fromBalance, err := t.balanceOrZero(from)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w", err)
	}
	zero, err := t.arith.AsEuint64(0)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w", err)
	}
	covered, err := t.arith.LessOrEqual(amount, fromBalance)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w", err)
	}
	transferred, err := t.arith.Select(covered, amount, zero)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w", err)
	}
	nextFrom, err := t.arith.Sub(fromBalance, transferred)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w", err)
	}
	t.setBalance(tx, from, nextFrom)

	toBalance, err := t.balanceOrZero(to)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w", err)
	}
	nextTo, err := t.arith.Add(toBalance, transferred)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("transfer: %w", err)
	}
	t.setBalance(tx, to, nextTo)

	if err := t.relay.Grant(tx, nextFrom.Handle, t.cfg.Address, from); err != nil {
		return fhe.Euint64{}, err
	}
	if err := t.relay.Grant(tx, nextTo.Handle, t.cfg.Address, to); err != nil {
		return fhe.Euint64{}, err
	}
	if err := t.relay.Grant(tx, transferred.Handle, t.cfg.Address, from, to); err != nil {
		return fhe.Euint64{}, err
	}
	t.acl.AllowTransient(transferred.Handle, caller)

	if err := t.emitTransfer(tx, from, to, transferred); err != nil {
		return fhe.Euint64{}, err
	}
	return transferred, nil
}

// balanceOrZero must not be called with mu held.
func (t *ConfidentialToken) balanceOrZero(holder common.Address) (fhe.Euint64, error) {
	t.mu.RLock()
	balance, ok := t.balances[holder]
	t.mu.RUnlock()
	if ok {
		return balance, nil
	}
	return t.arith.AsEuint64(0)
}

func (t *ConfidentialToken) setBalance(tx *chain.Tx, holder common.Address, balance fhe.Euint64) {
	t.mu.Lock()
	prev, existed := t.balances[holder]
	t.balances[holder] = balance
	t.mu.Unlock()

	tx.Journal(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if existed {
			t.balances[holder] = prev
			return
		}
		delete(t.balances, holder)
	})
}

func (t *ConfidentialToken) emitTransfer(tx *chain.Tx, from, to common.Address, amount fhe.Euint64) error {
	log, err := events.ConfidentialTransfer(t.cfg.Address, from, to, amount)
	if err != nil {
		return err
	}
	tx.Emit(log)
	return nil
}

// BalanceRecord is one stored balance for snapshots.
type BalanceRecord struct {
	Holder  common.Address `json:"holder"`
	Balance fhe.Euint64    `json:"balance"`
}

// OperatorRecord is one stored operator grant for snapshots.
type OperatorRecord struct {
	Holder   common.Address `json:"holder"`
	Operator common.Address `json:"operator"`
	Until    uint64         `json:"until"`
}

// State is the exportable content of a token.
type State struct {
	Balances  []BalanceRecord  `json:"balances"`
	Operators []OperatorRecord `json:"operators"`
}

func (t *ConfidentialToken) Export() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var state State
	for holder, balance := range t.balances {
		state.Balances = append(state.Balances, BalanceRecord{Holder: holder, Balance: balance})
	}
	for holder, spenders := range t.operators {
		for spender, until := range spenders {
			state.Operators = append(state.Operators, OperatorRecord{Holder: holder, Operator: spender, Until: until})
		}
	}
	sort.Slice(state.Balances, func(i, j int) bool {
		return state.Balances[i].Holder.Hex() < state.Balances[j].Holder.Hex()
	})
	sort.Slice(state.Operators, func(i, j int) bool {
		a, b := state.Operators[i], state.Operators[j]
		if a.Holder != b.Holder {
			return a.Holder.Hex() < b.Holder.Hex()
		}
		return a.Operator.Hex() < b.Operator.Hex()
	})
	return state
}

func (t *ConfidentialToken) Import(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.balances = make(map[common.Address]fhe.Euint64, len(state.Balances))
	for _, rec := range state.Balances {
		t.balances[rec.Holder] = rec.Balance
	}
	t.operators = make(map[common.Address]map[common.Address]uint64)
	for _, rec := range state.Operators {
		spenders, ok := t.operators[rec.Holder]
		if !ok {
			spenders = make(map[common.Address]uint64)
			t.operators[rec.Holder] = spenders
		}
		spenders[rec.Operator] = rec.Until
	}
}
