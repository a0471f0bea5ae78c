package input

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
)

var (
	ErrInvalidProof    = errors.New("invalid input proof")
	ErrContextMismatch = errors.New("input proof context mismatch")
)

// Verifier admits submitted handles whose proof was signed by the trusted input signer.
type Verifier struct {
	backend fhe.Backend
	perms   fhe.Permissions
	signer  common.Address
	logger  *zap.Logger
}

func NewVerifier(backend fhe.Backend, perms fhe.Permissions, signer common.Address, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{backend: backend, perms: perms, signer: signer, logger: logger}
}

// Verify checks that handle was encrypted by submitter for target on this chain. On
// success target gains a transient grant on handle; nothing else changes.
func (v *Verifier) Verify(tx *chain.Tx, handle fhe.Handle, blob []byte, submitter, target common.Address) (fhe.Euint64, error) {
	proof, err := DecodeProof(blob)
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}

	signer, err := proof.Signer()
	if err != nil {
		return fhe.Euint64{}, fmt.Errorf("%w: signature: %v", ErrInvalidProof, err)
	}
	if signer != v.signer {
		return fhe.Euint64{}, fmt.Errorf("%w: untrusted signer %s", ErrInvalidProof, signer.Hex())
	}
	if proof.ChainID != tx.ChainID {
		return fhe.Euint64{}, fmt.Errorf("%w: chain id %d", ErrInvalidProof, proof.ChainID)
	}
	if proof.Expiry != 0 && proof.Expiry < tx.Time {
		return fhe.Euint64{}, fmt.Errorf("%w: expired at %d", ErrInvalidProof, proof.Expiry)
	}

	if proof.User != submitter {
		return fhe.Euint64{}, fmt.Errorf("%w: user %s, submitter %s", ErrContextMismatch, proof.User.Hex(), submitter.Hex())
	}
	if proof.Contract != target {
		return fhe.Euint64{}, fmt.Errorf("%w: contract %s, target %s", ErrContextMismatch, proof.Contract.Hex(), target.Hex())
	}
	if !proof.Contains(handle) {
		return fhe.Euint64{}, fmt.Errorf("%w: handle %s not in proof", ErrContextMismatch, handle.Hex())
	}

	if handle.Type() != fhe.TypeEuint64 {
		return fhe.Euint64{}, fmt.Errorf("%w: handle type %s", ErrInvalidProof, handle.Type())
	}
	if !v.backend.Exists(handle) {
		return fhe.Euint64{}, fmt.Errorf("%w: unknown handle %s", ErrInvalidProof, handle.Hex())
	}

	v.perms.AllowTransient(handle, target)
	return fhe.Uint64(handle), nil
}
