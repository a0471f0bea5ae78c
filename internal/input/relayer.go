package input

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/fhe"
)

// EncryptedInput is what a client submits: handles plus the proof that covers them.
type EncryptedInput struct {
	Handles []fhe.Handle  `json:"handles"`
	Proof   hexutil.Bytes `json:"proof"`
}

// RelayerConfig configures the off-chain encryption service.
type RelayerConfig struct {
	ChainID uint64
	Key     *ecdsa.PrivateKey
	// TTL bounds proof validity. Zero means proofs never expire.
	TTL   time.Duration
	Clock func() time.Time
}

// Relayer encrypts client values and signs input proofs.
type Relayer struct {
	backend fhe.Backend
	cfg     RelayerConfig
	logger  *zap.Logger
}

func NewRelayer(backend fhe.Backend, cfg RelayerConfig, logger *zap.Logger) *Relayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Relayer{backend: backend, cfg: cfg, logger: logger}
}

// Signer returns the address whose proofs verifiers must trust.
func (r *Relayer) Signer() common.Address {
	return crypto.PubkeyToAddress(r.cfg.Key.PublicKey)
}

// Builder collects values for one encrypted input.
type Builder struct {
	relayer  *Relayer
	contract common.Address
	user     common.Address
	values   []uint64
}

// NewInput starts an input that only user may submit to contract.
func (r *Relayer) NewInput(contract, user common.Address) *Builder {
	return &Builder{relayer: r, contract: contract, user: user}
}

func (b *Builder) Add64(v uint64) *Builder {
	b.values = append(b.values, v)
	return b
}

// Encrypt encrypts the collected values and signs a proof over the resulting handles.
func (b *Builder) Encrypt(ctx context.Context) (EncryptedInput, error) {
	if len(b.values) == 0 {
		return EncryptedInput{}, fmt.Errorf("encrypt input: no values")
	}
	r := b.relayer

	handles := make([]fhe.Handle, 0, len(b.values))
	for _, v := range b.values {
		if err := ctx.Err(); err != nil {
			return EncryptedInput{}, fmt.Errorf("encrypt input: %w", err)
		}
		h, err := r.backend.Encrypt(v, fhe.TypeEuint64)
		if err != nil {
			return EncryptedInput{}, fmt.Errorf("encrypt input: %w", err)
		}
		handles = append(handles, h)
	}

	proof := Proof{
		User:     b.user,
		Contract: b.contract,
		ChainID:  r.cfg.ChainID,
		Handles:  handles,
	}
	if r.cfg.TTL > 0 {
		proof.Expiry = uint64(r.cfg.Clock().Add(r.cfg.TTL).Unix())
	}
	sig, err := crypto.Sign(proof.Digest().Bytes(), r.cfg.Key)
	if err != nil {
		return EncryptedInput{}, fmt.Errorf("sign input proof: %w", err)
	}
	proof.Signature = sig

	blob, err := proof.Encode()
	if err != nil {
		return EncryptedInput{}, err
	}
	r.logger.Debug("input encrypted",
		zap.String("contract", b.contract.Hex()),
		zap.String("user", b.user.Hex()),
		zap.Int("values", len(handles)),
	)
	return EncryptedInput{Handles: handles, Proof: blob}, nil
}
