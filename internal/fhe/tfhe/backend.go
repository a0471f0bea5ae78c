// Package tfhe evaluates encrypted arithmetic with the lux TFHE bitwise evaluator.
// Key generation and every bootstrapped gate are expensive; a 64-bit division takes
// minutes on a CPU.
package tfhe

import (
	"encoding/binary"
	"fmt"
	"sync"

	luxfhe "github.com/luxfi/fhe"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/fhe"
)

var _ fhe.Backend = (*Backend)(nil)

// Backend keeps ciphertexts in memory, indexed by blake3-derived handles.
type Backend struct {
	params    luxfhe.Parameters
	evaluator *luxfhe.BitwiseEvaluator
	encryptor *luxfhe.BitwiseEncryptor
	public    *luxfhe.BitwisePublicEncryptor
	decryptor *luxfhe.BitwiseDecryptor
	logger    *zap.Logger

	mu    sync.RWMutex
	nonce uint64
	ints  map[fhe.Handle]*luxfhe.BitCiphertext
	bools map[fhe.Handle]*luxfhe.Ciphertext
}

// New generates a fresh key set with the PN10QP27 parameters.
func New(logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	params, err := luxfhe.NewParametersFromLiteral(luxfhe.PN10QP27)
	if err != nil {
		return nil, fmt.Errorf("tfhe parameters: %w", err)
	}

	kg := luxfhe.NewKeyGenerator(params)
	sk, pk := kg.GenKeyPair()
	bsk := kg.GenBootstrapKey(sk)
	logger.Info("tfhe keys generated", zap.Int("n", params.N()))

	return &Backend{
		params:    params,
		evaluator: luxfhe.NewBitwiseEvaluator(params, bsk, sk),
		encryptor: luxfhe.NewBitwiseEncryptor(params, sk),
		public:    luxfhe.NewBitwisePublicEncryptor(params, pk),
		decryptor: luxfhe.NewBitwiseDecryptor(params, sk),
		logger:    logger,
		ints:      make(map[fhe.Handle]*luxfhe.BitCiphertext),
		bools:     make(map[fhe.Handle]*luxfhe.Ciphertext),
	}, nil
}

func (b *Backend) Name() string {
	return "tfhe"
}

func (b *Backend) Encrypt(value uint64, t fhe.Type) (fhe.Handle, error) {
	if t != fhe.TypeEuint64 {
		return fhe.Handle{}, fmt.Errorf("%w: encrypt %s", fhe.ErrTypeMismatch, t)
	}
	ct, err := b.public.EncryptUint64(value, luxfhe.FheUint64)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: public encrypt: %v", fhe.ErrOperation, err)
	}
	return b.putInt("encrypt", ct), nil
}

func (b *Backend) TrivialEncrypt(value uint64, t fhe.Type) (fhe.Handle, error) {
	if t != fhe.TypeEuint64 {
		return fhe.Handle{}, fmt.Errorf("%w: trivial %s", fhe.ErrTypeMismatch, t)
	}
	return b.putInt("trivial", b.encryptor.EncryptUint64(value, luxfhe.FheUint64)), nil
}

func (b *Backend) Add(x, y fhe.Handle) (fhe.Handle, error) {
	return b.binary("add", x, y, b.evaluator.Add)
}

func (b *Backend) Sub(x, y fhe.Handle) (fhe.Handle, error) {
	return b.binary("sub", x, y, b.evaluator.Sub)
}

func (b *Backend) ScalarMul(x fhe.Handle, k uint64) (fhe.Handle, error) {
	ct, err := b.getInt(x)
	if err != nil {
		return fhe.Handle{}, err
	}
	out, err := b.evaluator.ScalarMul(ct, k)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: scalar mul: %v", fhe.ErrOperation, err)
	}
	return b.putInt(fmt.Sprintf("mul:%d", k), out, x), nil
}

// ScalarDiv encrypts the divisor and runs encrypted long division.
func (b *Backend) ScalarDiv(x fhe.Handle, k uint64) (fhe.Handle, error) {
	if k == 0 {
		return fhe.Handle{}, fhe.ErrDivisionByZero
	}
	ct, err := b.getInt(x)
	if err != nil {
		return fhe.Handle{}, err
	}
	divisor := b.encryptor.EncryptUint64(k, luxfhe.FheUint64)
	out, err := b.evaluator.Div(ct, divisor)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: scalar div: %v", fhe.ErrOperation, err)
	}
	return b.putInt(fmt.Sprintf("div:%d", k), out, x), nil
}

func (b *Backend) Le(x, y fhe.Handle) (fhe.Handle, error) {
	cx, err := b.getInt(x)
	if err != nil {
		return fhe.Handle{}, err
	}
	cy, err := b.getInt(y)
	if err != nil {
		return fhe.Handle{}, err
	}
	bit, err := b.evaluator.Le(cx, cy)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: le: %v", fhe.ErrOperation, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.derive("le", fhe.TypeEbool, x, y)
	b.bools[h] = bit
	return h, nil
}

func (b *Backend) Select(cond, x, y fhe.Handle) (fhe.Handle, error) {
	b.mu.RLock()
	bit, ok := b.bools[cond]
	b.mu.RUnlock()
	if !ok {
		return fhe.Handle{}, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, cond.Hex())
	}
	cx, err := b.getInt(x)
	if err != nil {
		return fhe.Handle{}, err
	}
	cy, err := b.getInt(y)
	if err != nil {
		return fhe.Handle{}, err
	}
	out, err := b.evaluator.Select(bit, cx, cy)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: select: %v", fhe.ErrOperation, err)
	}
	return b.putInt("select", out, cond, x, y), nil
}

func (b *Backend) Exists(h fhe.Handle) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if _, ok := b.ints[h]; ok {
		return true
	}
	_, ok := b.bools[h]
	return ok
}

func (b *Backend) Decrypt(h fhe.Handle) (uint64, error) {
	b.mu.RLock()
	ct, isInt := b.ints[h]
	bit, isBool := b.bools[h]
	b.mu.RUnlock()

	switch {
	case isInt:
		return b.decryptor.DecryptUint64(ct), nil
	case isBool:
		return b.decryptor.DecryptUint64(luxfhe.WrapBoolCiphertext(bit)), nil
	default:
		return 0, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h.Hex())
	}
}

func (b *Backend) binary(op string, x, y fhe.Handle, fn func(a, b *luxfhe.BitCiphertext) (*luxfhe.BitCiphertext, error)) (fhe.Handle, error) {
	cx, err := b.getInt(x)
	if err != nil {
		return fhe.Handle{}, err
	}
	cy, err := b.getInt(y)
	if err != nil {
		return fhe.Handle{}, err
	}
	out, err := fn(cx, cy)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("%w: %s: %v", fhe.ErrOperation, op, err)
	}
	return b.putInt(op, out, x, y), nil
}

func (b *Backend) getInt(h fhe.Handle) (*luxfhe.BitCiphertext, error) {
	b.mu.RLock()
	ct, ok := b.ints[h]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h.Hex())
	}
	return ct, nil
}

func (b *Backend) putInt(op string, ct *luxfhe.BitCiphertext, operands ...fhe.Handle) fhe.Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	h := b.derive(op, fhe.TypeEuint64, operands...)
	b.ints[h] = ct
	return h
}

// derive must be called with mu held.
func (b *Backend) derive(op string, t fhe.Type, operands ...fhe.Handle) fhe.Handle {
	b.nonce++
	return fhe.DeriveHandle(blake3Sum, op, t, b.nonce, operands...)
}

func blake3Sum(parts ...[]byte) [32]byte {
	hasher := blake3.New()
	var size [4]byte
	for _, part := range parts {
		binary.BigEndian.PutUint32(size[:], uint32(len(part)))
		_, _ = hasher.Write(size[:])
		_, _ = hasher.Write(part)
	}
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}
