package fhe

import "errors"

var (
	ErrUnknownHandle  = errors.New("unknown ciphertext handle")
	ErrTypeMismatch   = errors.New("ciphertext type mismatch")
	ErrNotAllowed     = errors.New("ciphertext not allowed for account")
	ErrDivisionByZero = errors.New("division by zero constant")
	ErrOperation      = errors.New("fhe operation failed")
)

// Backend is the homomorphic coprocessor. It stores ciphertexts behind handles and
// evaluates operations over them without exposing plaintexts to the caller.
//
// Decrypt belongs to the off-chain key holder; engine code never calls it.
type Backend interface {
	Name() string

	// Encrypt encrypts a client value under the network public key and registers it.
	Encrypt(value uint64, t Type) (Handle, error)
	// TrivialEncrypt registers a public constant as a ciphertext.
	TrivialEncrypt(value uint64, t Type) (Handle, error)

	Add(a, b Handle) (Handle, error)
	Sub(a, b Handle) (Handle, error)
	ScalarMul(a Handle, k uint64) (Handle, error)
	ScalarDiv(a Handle, k uint64) (Handle, error)
	Le(a, b Handle) (Handle, error)
	Select(cond, a, b Handle) (Handle, error)

	Exists(h Handle) bool
	Decrypt(h Handle) (uint64, error)
}
