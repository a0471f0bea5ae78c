// Package ledger stores the encrypted pool reserves and liquidity positions.
package ledger

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
)

var ErrUnknownPool = errors.New("unknown pool")

// PoolID identifies one of the fixed-rate pools.
type PoolID uint8

const (
	PoolUSDC PoolID = 0
	PoolUSDT PoolID = 1
)

// Pools lists every pool in id order.
var Pools = []PoolID{PoolUSDC, PoolUSDT}

func (id PoolID) String() string {
	switch id {
	case PoolUSDC:
		return "usdc"
	case PoolUSDT:
		return "usdt"
	default:
		return fmt.Sprintf("pool(%d)", uint8(id))
	}
}

func (id PoolID) Valid() bool {
	return id == PoolUSDC || id == PoolUSDT
}

// ParsePool accepts "usdc", "usdt" or the numeric id.
func ParsePool(s string) (PoolID, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usdc", "cusdc", "0":
		return PoolUSDC, nil
	case "usdt", "cusdt", "1":
		return PoolUSDT, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPool, s)
	}
}

// Pool holds the encrypted reserves of one pool.
type Pool struct {
	ReserveBase fhe.Euint64 `json:"reserve_base"`
	ReserveEth  fhe.Euint64 `json:"reserve_eth"`
}

// Position is a provider's encrypted share of one pool.
type Position struct {
	Share fhe.Euint64 `json:"share"`
}

// Ledger owns pool and position records. Commits are journaled on the unit.
type Ledger struct {
	mu        sync.RWMutex
	pools     map[PoolID]Pool
	positions map[PoolID]map[common.Address]Position
	zero      fhe.Euint64
}

// New creates both pools with reserves set to genesisZero, the encrypted zero minted
// at deployment. Absent positions also read as genesisZero.
func New(genesisZero fhe.Euint64) *Ledger {
	l := &Ledger{
		pools:     make(map[PoolID]Pool, len(Pools)),
		positions: make(map[PoolID]map[common.Address]Position, len(Pools)),
		zero:      genesisZero,
	}
	for _, id := range Pools {
		l.pools[id] = Pool{ReserveBase: genesisZero, ReserveEth: genesisZero}
		l.positions[id] = make(map[common.Address]Position)
	}
	return l
}

// Zero returns the encrypted zero used for absent records.
func (l *Ledger) Zero() fhe.Euint64 {
	return l.zero
}

func (l *Ledger) GetPool(id PoolID) (Pool, error) {
	if !id.Valid() {
		return Pool{}, fmt.Errorf("%w: %d", ErrUnknownPool, uint8(id))
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pools[id], nil
}

// GetPosition returns the zero-share record when user never provided liquidity.
func (l *Ledger) GetPosition(id PoolID, user common.Address) (Position, error) {
	if !id.Valid() {
		return Position{}, fmt.Errorf("%w: %d", ErrUnknownPool, uint8(id))
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.positions[id][user]
	if !ok {
		return Position{Share: l.zero}, nil
	}
	return pos, nil
}

// HasPosition reports whether user has a stored record in pool id.
func (l *Ledger) HasPosition(id PoolID, user common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.positions[id][user]
	return ok
}

func (l *Ledger) CommitPool(tx *chain.Tx, id PoolID, pool Pool) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownPool, uint8(id))
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.pools[id]
	l.pools[id] = pool
	tx.Journal(func() {
		l.mu.Lock()
		l.pools[id] = prev
		l.mu.Unlock()
	})
	return nil
}

func (l *Ledger) CommitPosition(tx *chain.Tx, id PoolID, user common.Address, pos Position) error {
	if !id.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownPool, uint8(id))
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, existed := l.positions[id][user]
	l.positions[id][user] = pos
	tx.Journal(func() {
		l.mu.Lock()
		if existed {
			l.positions[id][user] = prev
		} else {
			delete(l.positions[id], user)
		}
		l.mu.Unlock()
	})
	return nil
}

// Positions returns the share of user in every pool, indexed by PoolID.
func (l *Ledger) Positions(user common.Address) []Position {
	out := make([]Position, len(Pools))
	for _, id := range Pools {
		out[id], _ = l.GetPosition(id, user)
	}
	return out
}

// PositionRecord is one stored position for snapshots.
type PositionRecord struct {
	Pool  PoolID         `json:"pool"`
	User  common.Address `json:"user"`
	Share fhe.Euint64    `json:"share"`
}

// State is the exportable content of the ledger.
type State struct {
	Zero      fhe.Euint64      `json:"zero"`
	Pools     []Pool           `json:"pools"`
	Positions []PositionRecord `json:"positions"`
}

func (l *Ledger) Export() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	state := State{Zero: l.zero, Pools: make([]Pool, len(Pools))}
	for _, id := range Pools {
		state.Pools[id] = l.pools[id]
		for user, pos := range l.positions[id] {
			state.Positions = append(state.Positions, PositionRecord{Pool: id, User: user, Share: pos.Share})
		}
	}
	sort.Slice(state.Positions, func(i, j int) bool {
		a, b := state.Positions[i], state.Positions[j]
		if a.Pool != b.Pool {
			return a.Pool < b.Pool
		}
		return a.User.Hex() < b.User.Hex()
	})
	return state
}

func (l *Ledger) Import(state State) error {
	if len(state.Pools) != len(Pools) {
		return fmt.Errorf("import ledger: %d pools", len(state.Pools))
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.zero = state.Zero
	for _, id := range Pools {
		l.pools[id] = state.Pools[id]
		l.positions[id] = make(map[common.Address]Position)
	}
	for _, rec := range state.Positions {
		if !rec.Pool.Valid() {
			return fmt.Errorf("import ledger: %w: %d", ErrUnknownPool, uint8(rec.Pool))
		}
		l.positions[rec.Pool][rec.User] = Position{Share: rec.Share}
	}
	return nil
}
