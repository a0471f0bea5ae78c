package token

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/acl"
	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/fhe/mock"
)

var (
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	holder    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	spender   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	receiver  = common.HexToAddress("0x00000000000000000000000000000000000000d3")
	now       = time.Unix(1_700_000_000, 0)
)

type fixture struct {
	backend *mock.Backend
	acl     *acl.ACL
	runtime *chain.Runtime
	token   *ConfidentialToken
}

func newFixture() *fixture {
	backend := mock.New()
	table := acl.New()
	meter := &fhe.Meter{}
	rt := chain.NewRuntime(chain.Config{ChainID: 31337, Clock: func() time.Time { return now }, Meter: meter}, nil)
	rt.OnFinish(table.ClearTransient)
	tok := New(Config{Address: tokenAddr, Name: "Confidential USDC", Symbol: "cUSDC", Decimals: 6}, backend, table, meter, nil)
	return &fixture{backend: backend, acl: table, runtime: rt, token: tok}
}

func (f *fixture) exec(t *testing.T, fn func(tx *chain.Tx) error) (*chain.Receipt, error) {
	t.Helper()
	return f.runtime.Execute(context.Background(), spender, tokenAddr, fn)
}

func (f *fixture) balance(t *testing.T, who common.Address) uint64 {
	t.Helper()
	h := f.token.BalanceOf(who)
	if h.IsZero() {
		return 0
	}
	v, err := f.backend.Decrypt(h.Handle)
	require.NoError(t, err)
	return v
}

// encrypted registers a client ciphertext of v without any grant.
func (f *fixture) encrypted(t *testing.T, v uint64) fhe.Euint64 {
	t.Helper()
	h, err := f.backend.Encrypt(v, fhe.TypeEuint64)
	require.NoError(t, err)
	return fhe.Uint64(h)
}

func TestMint(t *testing.T) {
	f := newFixture()
	receipt, err := f.exec(t, func(tx *chain.Tx) error {
		if err := f.token.Mint(tx, holder, 10_000_000); err != nil {
			return err
		}
		return f.token.Mint(tx, holder, 5)
	})
	require.NoError(t, err)
	require.Len(t, receipt.Logs, 2)
	require.Equal(t, uint64(10_000_005), f.balance(t, holder))
	require.True(t, f.acl.IsAllowed(f.token.BalanceOf(holder).Handle, holder))
}

func TestTransferFromRequiresOperator(t *testing.T) {
	f := newFixture()
	_, err := f.exec(t, func(tx *chain.Tx) error { return f.token.Mint(tx, holder, 100) })
	require.NoError(t, err)
	before := f.token.BalanceOf(holder)

	amount := f.encrypted(t, 10)
	_, err = f.exec(t, func(tx *chain.Tx) error {
		f.acl.AllowTransient(amount.Handle, spender)
		f.acl.AllowTransient(amount.Handle, tokenAddr)
		_, err := f.token.TransferFrom(tx, spender, holder, receiver, amount)
		return err
	})
	require.ErrorIs(t, err, ErrUnauthorizedOperator)
	require.Equal(t, before, f.token.BalanceOf(holder))
	require.True(t, f.token.BalanceOf(receiver).IsZero())
}

func TestTransferFromMovesFunds(t *testing.T) {
	f := newFixture()
	_, err := f.exec(t, func(tx *chain.Tx) error {
		if err := f.token.Mint(tx, holder, 100); err != nil {
			return err
		}
		return f.token.SetOperator(tx, holder, spender, 4_000_000_000)
	})
	require.NoError(t, err)
	require.True(t, f.token.IsOperator(holder, spender, uint64(now.Unix())))

	amount := f.encrypted(t, 40)
	var transferred fhe.Euint64
	_, err = f.exec(t, func(tx *chain.Tx) error {
		f.acl.AllowTransient(amount.Handle, spender)
		f.acl.AllowTransient(amount.Handle, tokenAddr)
		var err error
		transferred, err = f.token.TransferFrom(tx, spender, holder, receiver, amount)
		require.True(t, f.acl.IsAllowed(transferred.Handle, spender))
		return err
	})
	require.NoError(t, err)
	require.Equal(t, uint64(60), f.balance(t, holder))
	require.Equal(t, uint64(40), f.balance(t, receiver))

	got, err := f.backend.Decrypt(transferred.Handle)
	require.NoError(t, err)
	require.Equal(t, uint64(40), got)
}

func TestShortfallTransfersZero(t *testing.T) {
	f := newFixture()
	_, err := f.exec(t, func(tx *chain.Tx) error {
		if err := f.token.Mint(tx, holder, 30); err != nil {
			return err
		}
		return f.token.SetOperator(tx, holder, spender, 4_000_000_000)
	})
	require.NoError(t, err)

	amount := f.encrypted(t, 31)
	var transferred fhe.Euint64
	_, err = f.exec(t, func(tx *chain.Tx) error {
		f.acl.AllowTransient(amount.Handle, spender)
		f.acl.AllowTransient(amount.Handle, tokenAddr)
		var err error
		transferred, err = f.token.TransferFrom(tx, spender, holder, receiver, amount)
		return err
	})
	require.NoError(t, err)
	got, err := f.backend.Decrypt(transferred.Handle)
	require.NoError(t, err)
	require.Zero(t, got)
	require.Equal(t, uint64(30), f.balance(t, holder))
	require.Zero(t, f.balance(t, receiver))
}

func TestExpiredOperator(t *testing.T) {
	f := newFixture()
	_, err := f.exec(t, func(tx *chain.Tx) error {
		return f.token.SetOperator(tx, holder, spender, uint64(now.Unix())-1)
	})
	require.NoError(t, err)
	require.False(t, f.token.IsOperator(holder, spender, uint64(now.Unix())))
	require.True(t, f.token.IsOperator(holder, holder, 0))
}

func TestTransferRequiresGrantOnAmount(t *testing.T) {
	f := newFixture()
	_, err := f.exec(t, func(tx *chain.Tx) error { return f.token.Mint(tx, spender, 10) })
	require.NoError(t, err)

	amount := f.encrypted(t, 1)
	_, err = f.exec(t, func(tx *chain.Tx) error {
		_, err := f.token.Transfer(tx, spender, receiver, amount)
		return err
	})
	require.ErrorIs(t, err, fhe.ErrNotAllowed)
	require.Equal(t, uint64(10), f.balance(t, spender))
}

func TestExportImport(t *testing.T) {
	f := newFixture()
	_, err := f.exec(t, func(tx *chain.Tx) error {
		if err := f.token.Mint(tx, holder, 9); err != nil {
			return err
		}
		return f.token.SetOperator(tx, holder, spender, 123)
	})
	require.NoError(t, err)

	restored := New(Config{Address: tokenAddr, Symbol: "cUSDC"}, f.backend, f.acl, nil, nil)
	restored.Import(f.token.Export())
	require.Equal(t, f.token.Export(), restored.Export())
	require.True(t, restored.IsOperator(holder, spender, 123))
}
