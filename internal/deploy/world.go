// Package deploy assembles the tokens, the exchange and their collaborators into one
// runnable environment.
package deploy

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/acl"
	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/engine"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/gateway"
	"hiddenLiquidity/internal/input"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/model"
	"hiddenLiquidity/internal/token"
)

var ErrUnknownToken = errors.New("unknown token")

// Config describes one deployment.
type Config struct {
	ChainID        uint64
	Deployer       common.Address
	SignerKey      *ecdsa.PrivateKey
	ProofTTL       time.Duration
	DecryptLatency time.Duration
	Clock          func() time.Time
}

// Addresses are the deployed contract addresses, derived from the deployer nonce in
// deployment order.
type Addresses struct {
	USDC     common.Address `json:"usdc"`
	USDT     common.Address `json:"usdt"`
	ETH      common.Address `json:"eth"`
	Exchange common.Address `json:"exchange"`
}

// ContractAddresses derives the addresses for deployer.
func ContractAddresses(deployer common.Address) Addresses {
	return Addresses{
		USDC:     crypto.CreateAddress(deployer, 0),
		USDT:     crypto.CreateAddress(deployer, 1),
		ETH:      crypto.CreateAddress(deployer, 2),
		Exchange: crypto.CreateAddress(deployer, 3),
	}
}

// World is a deployed environment.
type World struct {
	Config    Config
	Addresses Addresses
	Backend   fhe.Backend
	Meter     *fhe.Meter
	ACL       *acl.ACL
	Runtime   *chain.Runtime
	Relayer   *input.Relayer
	Verifier  *input.Verifier
	Gateway   *gateway.Gateway
	USDC      *token.ConfidentialToken
	USDT      *token.ConfidentialToken
	ETH       *token.ConfidentialToken
	Engine    *engine.Engine
	Exchange  *engine.Exchange

	logger *zap.Logger
}

// Deploy builds a fresh world and mints the genesis zero the pools start from.
func Deploy(ctx context.Context, cfg Config, backend fhe.Backend, logger *zap.Logger) (*World, error) {
	w, err := assemble(cfg, backend, logger)
	if err != nil {
		return nil, err
	}

	arith := fhe.NewArith(backend, w.ACL, w.Addresses.Exchange, w.Meter)
	relay := acl.NewRelay(w.ACL, backend, w.logger)
	var zero fhe.Euint64
	_, err = w.Runtime.Execute(ctx, cfg.Deployer, w.Addresses.Exchange, func(tx *chain.Tx) error {
		var err error
		if zero, err = arith.AsEuint64(0); err != nil {
			return err
		}
		return relay.Grant(tx, zero.Handle, w.Addresses.Exchange)
	})
	if err != nil {
		return nil, fmt.Errorf("deploy exchange: %w", err)
	}
	w.wire(ledger.New(zero))

	w.logger.Info("deployed",
		zap.String("cUSDC", w.Addresses.USDC.Hex()),
		zap.String("cUSDT", w.Addresses.USDT.Hex()),
		zap.String("cETH", w.Addresses.ETH.Hex()),
		zap.String("exchange", w.Addresses.Exchange.Hex()),
		zap.String("backend", backend.Name()),
	)
	return w, nil
}

func assemble(cfg Config, backend fhe.Backend, logger *zap.Logger) (*World, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SignerKey == nil {
		return nil, fmt.Errorf("deploy: missing input signer key")
	}
	if cfg.Deployer == (common.Address{}) {
		return nil, fmt.Errorf("deploy: missing deployer")
	}

	addrs := ContractAddresses(cfg.Deployer)
	meter := &fhe.Meter{}
	table := acl.New()
	runtime := chain.NewRuntime(chain.Config{ChainID: cfg.ChainID, Clock: cfg.Clock, Meter: meter}, logger.Named("chain"))
	runtime.OnFinish(table.ClearTransient)

	relayer := input.NewRelayer(backend, input.RelayerConfig{
		ChainID: cfg.ChainID,
		Key:     cfg.SignerKey,
		TTL:     cfg.ProofTTL,
		Clock:   cfg.Clock,
	}, logger.Named("relayer"))

	tokenLogger := logger.Named("token")
	return &World{
		Config:    cfg,
		Addresses: addrs,
		Backend:   backend,
		Meter:     meter,
		ACL:       table,
		Runtime:   runtime,
		Relayer:   relayer,
		Verifier:  input.NewVerifier(backend, table, relayer.Signer(), logger.Named("input")),
		Gateway:   gateway.New(backend, table, cfg.DecryptLatency, logger.Named("gateway")),
		USDC:      token.New(token.Config{Address: addrs.USDC, Name: "Confidential USDC", Symbol: "cUSDC", Decimals: 6}, backend, table, meter, tokenLogger),
		USDT:      token.New(token.Config{Address: addrs.USDT, Name: "Confidential USDT", Symbol: "cUSDT", Decimals: 6}, backend, table, meter, tokenLogger),
		ETH:       token.New(token.Config{Address: addrs.ETH, Name: "Confidential ETH", Symbol: "cETH", Decimals: 6}, backend, table, meter, tokenLogger),
		logger:    logger,
	}, nil
}

func (w *World) wire(l *ledger.Ledger) {
	w.Engine = engine.New(w.Addresses.Exchange, w.Backend, w.ACL, w.Meter, l, engine.Tokens{
		USDC: w.USDC,
		USDT: w.USDT,
		ETH:  w.ETH,
	}, w.logger.Named("engine"))
	w.Exchange = engine.NewExchange(w.Engine, w.Runtime, w.Verifier, w.logger.Named("exchange"))
}

// Tokens returns the tokens in deployment order.
func (w *World) Tokens() []*token.ConfidentialToken {
	return []*token.ConfidentialToken{w.USDC, w.USDT, w.ETH}
}

// Token resolves "usdc", "usdt", "eth", their c-prefixed symbols or an address.
func (w *World) Token(name string) (*token.ConfidentialToken, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, t := range w.Tokens() {
		symbol := strings.ToLower(t.Symbol())
		if needle == symbol || needle == strings.TrimPrefix(symbol, "c") || strings.EqualFold(needle, t.Address().Hex()) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownToken, name)
}

// TokenMetas describes every deployed token.
func (w *World) TokenMetas() []model.TokenMeta {
	usdc, usdt, eth := w.USDC.Meta(), w.USDT.Meta(), w.ETH.Meta()
	usdc.Pool = ledger.PoolUSDC.String()
	usdt.Pool = ledger.PoolUSDT.String()
	return []model.TokenMeta{usdc, usdt, eth}
}

// Mint credits amount of the named token to to. Minting is open, as on the test tokens.
func (w *World) Mint(ctx context.Context, name string, to common.Address, amount uint64) (*chain.Receipt, error) {
	t, err := w.Token(name)
	if err != nil {
		return nil, err
	}
	return w.Runtime.Execute(ctx, to, t.Address(), func(tx *chain.Tx) error {
		return t.Mint(tx, to, amount)
	})
}

// Authorize makes the exchange an operator of holder on the named tokens until the given
// unix time. With no names every token is authorized.
func (w *World) Authorize(ctx context.Context, holder common.Address, until uint64, names ...string) (*chain.Receipt, error) {
	tokens := w.Tokens()
	if len(names) > 0 {
		tokens = tokens[:0:0]
		for _, name := range names {
			t, err := w.Token(name)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, t)
		}
	}
	return w.Runtime.Execute(ctx, holder, w.Addresses.Exchange, func(tx *chain.Tx) error {
		for _, t := range tokens {
			if err := t.SetOperator(tx, holder, w.Addresses.Exchange, until); err != nil {
				return err
			}
		}
		return nil
	})
}
