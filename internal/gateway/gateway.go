// Package gateway serves user decryption requests for ciphertexts the user and the
// holding contract are both allowed to read.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/fhe"
)

var ErrDecryptNotAllowed = errors.New("decryption not allowed")

// Grants is the read side of the access control list. Only committed grants count;
// transient ones belong to a unit that may still revert.
type Grants interface {
	IsAllowedPersistent(h fhe.Handle, account common.Address) bool
}

// Gateway decrypts off the caller's goroutine. Latency simulates the relayer round trip.
type Gateway struct {
	backend fhe.Backend
	grants  Grants
	latency time.Duration
	logger  *zap.Logger
}

func New(backend fhe.Backend, grants Grants, latency time.Duration, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{backend: backend, grants: grants, latency: latency, logger: logger}
}

type result struct {
	value uint64
	err   error
}

// UserDecrypt returns the cleartext of h for user. The zero handle reads as 0.
func (g *Gateway) UserDecrypt(ctx context.Context, h fhe.Handle, contract, user common.Address) (uint64, error) {
	if h.IsZero() {
		return 0, nil
	}
	if !g.grants.IsAllowedPersistent(h, contract) {
		return 0, fmt.Errorf("%w: %s for contract %s", ErrDecryptNotAllowed, h.Hex(), contract.Hex())
	}
	if !g.grants.IsAllowedPersistent(h, user) {
		return 0, fmt.Errorf("%w: %s for user %s", ErrDecryptNotAllowed, h.Hex(), user.Hex())
	}

	done := make(chan result, 1)
	go func() {
		if g.latency > 0 {
			timer := time.NewTimer(g.latency)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				done <- result{err: ctx.Err()}
				return
			}
		}
		v, err := g.backend.Decrypt(h)
		done <- result{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("user decrypt: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return 0, fmt.Errorf("user decrypt: %w", r.err)
		}
		g.logger.Debug("user decrypt", zap.String("handle", h.Hex()), zap.String("user", user.Hex()))
		return r.value, nil
	}
}

// DecryptMany decrypts several handles for user, stopping at the first failure.
func (g *Gateway) DecryptMany(ctx context.Context, handles []fhe.Handle, contract, user common.Address) ([]uint64, error) {
	out := make([]uint64, len(handles))
	for i, h := range handles {
		v, err := g.UserDecrypt(ctx, h, contract, user)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
