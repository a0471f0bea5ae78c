package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
)

var provider = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func handle(b byte) fhe.Euint64 {
	var h fhe.Handle
	h[0] = b
	h[30] = byte(fhe.TypeEuint64)
	return fhe.Uint64(h)
}

func TestParsePool(t *testing.T) {
	cases := map[string]PoolID{"usdc": PoolUSDC, "USDT": PoolUSDT, "0": PoolUSDC, " cusdt ": PoolUSDT}
	for in, want := range cases {
		got, err := ParsePool(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got)
	}
	_, err := ParsePool("dai")
	require.ErrorIs(t, err, ErrUnknownPool)
}

func TestDefaultsAndUnknownPool(t *testing.T) {
	zero := handle(1)
	l := New(zero)

	pool, err := l.GetPool(PoolUSDT)
	require.NoError(t, err)
	require.Equal(t, zero, pool.ReserveBase)
	require.Equal(t, zero, pool.ReserveEth)

	pos, err := l.GetPosition(PoolUSDC, provider)
	require.NoError(t, err)
	require.Equal(t, zero, pos.Share)
	require.False(t, l.HasPosition(PoolUSDC, provider))

	_, err = l.GetPool(PoolID(7))
	require.ErrorIs(t, err, ErrUnknownPool)
}

func TestCommitIsJournaled(t *testing.T) {
	zero := handle(1)
	l := New(zero)
	rt := chain.NewRuntime(chain.Config{ChainID: 1}, nil)

	boom := errors.New("boom")
	_, err := rt.Execute(context.Background(), provider, provider, func(tx *chain.Tx) error {
		require.NoError(t, l.CommitPool(tx, PoolUSDC, Pool{ReserveBase: handle(2), ReserveEth: handle(3)}))
		require.NoError(t, l.CommitPosition(tx, PoolUSDC, provider, Position{Share: handle(4)}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	pool, err := l.GetPool(PoolUSDC)
	require.NoError(t, err)
	require.Equal(t, Pool{ReserveBase: zero, ReserveEth: zero}, pool)
	require.False(t, l.HasPosition(PoolUSDC, provider))

	_, err = rt.Execute(context.Background(), provider, provider, func(tx *chain.Tx) error {
		return l.CommitPosition(tx, PoolUSDT, provider, Position{Share: handle(5)})
	})
	require.NoError(t, err)
	positions := l.Positions(provider)
	require.Equal(t, zero, positions[PoolUSDC].Share)
	require.Equal(t, handle(5), positions[PoolUSDT].Share)
}

func TestExportImport(t *testing.T) {
	l := New(handle(1))
	rt := chain.NewRuntime(chain.Config{ChainID: 1}, nil)
	_, err := rt.Execute(context.Background(), provider, provider, func(tx *chain.Tx) error {
		if err := l.CommitPool(tx, PoolUSDT, Pool{ReserveBase: handle(8), ReserveEth: handle(9)}); err != nil {
			return err
		}
		return l.CommitPosition(tx, PoolUSDT, provider, Position{Share: handle(10)})
	})
	require.NoError(t, err)

	restored := New(handle(2))
	require.NoError(t, restored.Import(l.Export()))
	require.Equal(t, l.Export(), restored.Export())
	require.Equal(t, handle(1), restored.Zero())
}
