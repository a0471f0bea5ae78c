// Package mock is a cleartext coprocessor: handles index plaintext values directly.
// It offers no confidentiality and exists for tests and local development, matching the
// mock mode of the hardhat toolchain.
package mock

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"hiddenLiquidity/internal/fhe"
)

// Entry is one stored plaintext.
type Entry struct {
	Handle fhe.Handle `json:"handle"`
	Type   fhe.Type   `json:"type"`
	Value  uint64     `json:"value"`
}

// State is the exportable content of the backend.
type State struct {
	Nonce   uint64  `json:"nonce"`
	Entries []Entry `json:"entries"`
}

var _ fhe.Backend = (*Backend)(nil)

// Backend implements fhe.Backend over a plaintext table.
type Backend struct {
	mu      sync.RWMutex
	nonce   uint64
	entries map[fhe.Handle]Entry
}

func New() *Backend {
	return &Backend{entries: make(map[fhe.Handle]Entry)}
}

func (b *Backend) Name() string {
	return "mock"
}

func (b *Backend) Encrypt(value uint64, t fhe.Type) (fhe.Handle, error) {
	return b.store("encrypt", t, value)
}

func (b *Backend) TrivialEncrypt(value uint64, t fhe.Type) (fhe.Handle, error) {
	return b.store("trivial", t, value)
}

func (b *Backend) Add(x, y fhe.Handle) (fhe.Handle, error) {
	vx, vy, err := b.pair(x, y, fhe.TypeEuint64)
	if err != nil {
		return fhe.Handle{}, err
	}
	return b.store("add", fhe.TypeEuint64, vx+vy, x, y)
}

func (b *Backend) Sub(x, y fhe.Handle) (fhe.Handle, error) {
	vx, vy, err := b.pair(x, y, fhe.TypeEuint64)
	if err != nil {
		return fhe.Handle{}, err
	}
	return b.store("sub", fhe.TypeEuint64, vx-vy, x, y)
}

func (b *Backend) ScalarMul(x fhe.Handle, k uint64) (fhe.Handle, error) {
	vx, err := b.value(x, fhe.TypeEuint64)
	if err != nil {
		return fhe.Handle{}, err
	}
	return b.store(fmt.Sprintf("mul:%d", k), fhe.TypeEuint64, vx*k, x)
}

func (b *Backend) ScalarDiv(x fhe.Handle, k uint64) (fhe.Handle, error) {
	if k == 0 {
		return fhe.Handle{}, fhe.ErrDivisionByZero
	}
	vx, err := b.value(x, fhe.TypeEuint64)
	if err != nil {
		return fhe.Handle{}, err
	}
	return b.store(fmt.Sprintf("div:%d", k), fhe.TypeEuint64, vx/k, x)
}

func (b *Backend) Le(x, y fhe.Handle) (fhe.Handle, error) {
	vx, vy, err := b.pair(x, y, fhe.TypeEuint64)
	if err != nil {
		return fhe.Handle{}, err
	}
	var out uint64
	if vx <= vy {
		out = 1
	}
	return b.store("le", fhe.TypeEbool, out, x, y)
}

func (b *Backend) Select(cond, x, y fhe.Handle) (fhe.Handle, error) {
	c, err := b.value(cond, fhe.TypeEbool)
	if err != nil {
		return fhe.Handle{}, err
	}
	vx, vy, err := b.pair(x, y, fhe.TypeEuint64)
	if err != nil {
		return fhe.Handle{}, err
	}
	// c is 0 or 1: blend instead of branching.
	out := c*vx + (1-c)*vy
	return b.store("select", fhe.TypeEuint64, out, cond, x, y)
}

func (b *Backend) Exists(h fhe.Handle) bool {
	b.mu.RLock()
	_, ok := b.entries[h]
	b.mu.RUnlock()
	return ok
}

func (b *Backend) Decrypt(h fhe.Handle) (uint64, error) {
	b.mu.RLock()
	e, ok := b.entries[h]
	b.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h.Hex())
	}
	return e.Value, nil
}

// Export returns a copy of the stored table sorted by handle.
func (b *Backend) Export() State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entries := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Handle.Hex() < entries[j].Handle.Hex()
	})
	return State{Nonce: b.nonce, Entries: entries}
}

// Import replaces the stored table.
func (b *Backend) Import(state State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nonce = state.Nonce
	b.entries = make(map[fhe.Handle]Entry, len(state.Entries))
	for _, e := range state.Entries {
		b.entries[e.Handle] = e
	}
}

func (b *Backend) store(op string, t fhe.Type, value uint64, operands ...fhe.Handle) (fhe.Handle, error) {
	if t == fhe.TypeEbool && value > 1 {
		return fhe.Handle{}, fmt.Errorf("%w: bool value %d", fhe.ErrTypeMismatch, value)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nonce++
	h := fhe.DeriveHandle(keccak, op, t, b.nonce, operands...)
	b.entries[h] = Entry{Handle: h, Type: t, Value: value}
	return h, nil
}

func (b *Backend) value(h fhe.Handle, t fhe.Type) (uint64, error) {
	b.mu.RLock()
	e, ok := b.entries[h]
	b.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h.Hex())
	}
	if e.Type != t {
		return 0, fmt.Errorf("%w: %s is %s", fhe.ErrTypeMismatch, h.Hex(), e.Type)
	}
	return e.Value, nil
}

func (b *Backend) pair(x, y fhe.Handle, t fhe.Type) (uint64, uint64, error) {
	vx, err := b.value(x, t)
	if err != nil {
		return 0, 0, err
	}
	vy, err := b.value(y, t)
	if err != nil {
		return 0, 0, err
	}
	return vx, vy, nil
}

func keccak(parts ...[]byte) [32]byte {
	return [32]byte(crypto.Keccak256Hash(parts...))
}
