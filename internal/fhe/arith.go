package fhe

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Permissions answers whether an account may compute on a handle.
type Permissions interface {
	IsAllowed(h Handle, account common.Address) bool
	AllowTransient(h Handle, account common.Address)
}

// Arith evaluates oblivious arithmetic on behalf of one executing account.
// No method inspects plaintext; the only conditional primitive is Select.
type Arith struct {
	backend Backend
	perms   Permissions
	account common.Address
	meter   *Meter
}

// NewArith binds the primitives to account. meter may be nil.
func NewArith(backend Backend, perms Permissions, account common.Address, meter *Meter) *Arith {
	return &Arith{backend: backend, perms: perms, account: account, meter: meter}
}

// Account returns the executing account the primitives run as.
func (a *Arith) Account() common.Address {
	return a.account
}

// AsEuint64 trivially encrypts a public constant.
func (a *Arith) AsEuint64(v uint64) (Euint64, error) {
	h, err := a.backend.TrivialEncrypt(v, TypeEuint64)
	if err != nil {
		return Euint64{}, fmt.Errorf("%s: %w", OpTrivial, err)
	}
	a.meter.charge(OpTrivial)
	a.perms.AllowTransient(h, a.account)
	return Uint64(h), nil
}

func (a *Arith) Add(x, y Euint64) (Euint64, error) {
	if err := a.check(TypeEuint64, x.Handle, y.Handle); err != nil {
		return Euint64{}, err
	}
	return a.uint64Result(OpAdd)(a.backend.Add(x.Handle, y.Handle))
}

// Sub wraps around at 64 bits when y > x.
func (a *Arith) Sub(x, y Euint64) (Euint64, error) {
	if err := a.check(TypeEuint64, x.Handle, y.Handle); err != nil {
		return Euint64{}, err
	}
	return a.uint64Result(OpSub)(a.backend.Sub(x.Handle, y.Handle))
}

func (a *Arith) MulConst(x Euint64, k uint64) (Euint64, error) {
	if err := a.check(TypeEuint64, x.Handle); err != nil {
		return Euint64{}, err
	}
	return a.uint64Result(OpScalarMul)(a.backend.ScalarMul(x.Handle, k))
}

// DivConst truncates toward zero. The divisor is public.
func (a *Arith) DivConst(x Euint64, k uint64) (Euint64, error) {
	if k == 0 {
		return Euint64{}, ErrDivisionByZero
	}
	if err := a.check(TypeEuint64, x.Handle); err != nil {
		return Euint64{}, err
	}
	return a.uint64Result(OpScalarDiv)(a.backend.ScalarDiv(x.Handle, k))
}

func (a *Arith) LessOrEqual(x, y Euint64) (Ebool, error) {
	if err := a.check(TypeEuint64, x.Handle, y.Handle); err != nil {
		return Ebool{}, err
	}
	h, err := a.backend.Le(x.Handle, y.Handle)
	if err != nil {
		return Ebool{}, fmt.Errorf("%s: %w", OpLe, err)
	}
	a.meter.charge(OpLe)
	a.perms.AllowTransient(h, a.account)
	return Ebool{Handle: h}, nil
}

// Select returns x when cond decrypts to true and y otherwise. Both branches are
// already evaluated ciphertexts, so the work is independent of cond.
func (a *Arith) Select(cond Ebool, x, y Euint64) (Euint64, error) {
	if err := a.check(TypeEbool, cond.Handle); err != nil {
		return Euint64{}, err
	}
	if err := a.check(TypeEuint64, x.Handle, y.Handle); err != nil {
		return Euint64{}, err
	}
	return a.uint64Result(OpSelect)(a.backend.Select(cond.Handle, x.Handle, y.Handle))
}

// Min is Select(x <= y, x, y).
func (a *Arith) Min(x, y Euint64) (Euint64, error) {
	le, err := a.LessOrEqual(x, y)
	if err != nil {
		return Euint64{}, err
	}
	return a.Select(le, x, y)
}

// Allowed reports whether the executing account may use h.
func (a *Arith) Allowed(h Handle) bool {
	return a.perms.IsAllowed(h, a.account)
}

func (a *Arith) check(t Type, handles ...Handle) error {
	for _, h := range handles {
		if h.Type() != t {
			return fmt.Errorf("%w: %s is %s, want %s", ErrTypeMismatch, h.Hex(), h.Type(), t)
		}
		if !a.perms.IsAllowed(h, a.account) {
			return fmt.Errorf("%w: %s for %s", ErrNotAllowed, h.Hex(), a.account.Hex())
		}
	}
	return nil
}

func (a *Arith) uint64Result(op Op) func(Handle, error) (Euint64, error) {
	return func(h Handle, err error) (Euint64, error) {
		if err != nil {
			return Euint64{}, fmt.Errorf("%s: %w", op, err)
		}
		a.meter.charge(op)
		a.perms.AllowTransient(h, a.account)
		return Uint64(h), nil
	}
}
