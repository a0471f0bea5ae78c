package acl

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/fhe/mock"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestGrantIsIdempotent(t *testing.T) {
	backend := mock.New()
	table := New()
	relay := NewRelay(table, backend, nil)
	rt := chain.NewRuntime(chain.Config{ChainID: 31337}, nil)

	h, err := backend.TrivialEncrypt(7, fhe.TypeEuint64)
	require.NoError(t, err)

	_, err = rt.Execute(context.Background(), alice, alice, func(tx *chain.Tx) error {
		if err := relay.Grant(tx, h, alice, bob); err != nil {
			return err
		}
		return relay.Grant(tx, h, alice)
	})
	require.NoError(t, err)
	require.True(t, table.IsAllowed(h, alice))
	require.True(t, table.IsAllowed(h, bob))
	require.Len(t, table.Export(), 2)
}

func TestGrantUnknownHandle(t *testing.T) {
	relay := NewRelay(New(), mock.New(), nil)
	rt := chain.NewRuntime(chain.Config{ChainID: 31337}, nil)

	var unknown fhe.Handle
	unknown[0] = 1
	unknown[30] = byte(fhe.TypeEuint64)

	_, err := rt.Execute(context.Background(), alice, alice, func(tx *chain.Tx) error {
		return relay.Grant(tx, unknown, alice)
	})
	require.ErrorIs(t, err, ErrGrantFailed)
}

func TestRevertedUnitDropsGrants(t *testing.T) {
	backend := mock.New()
	table := New()
	relay := NewRelay(table, backend, nil)
	rt := chain.NewRuntime(chain.Config{ChainID: 31337}, nil)
	rt.OnFinish(table.ClearTransient)

	h, err := backend.TrivialEncrypt(1, fhe.TypeEuint64)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = rt.Execute(context.Background(), alice, alice, func(tx *chain.Tx) error {
		table.AllowTransient(h, bob)
		if err := relay.Grant(tx, h, alice); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, table.IsAllowed(h, alice))
	require.False(t, table.IsAllowed(h, bob))
}

func TestTransientClearedAfterCommit(t *testing.T) {
	table := New()
	rt := chain.NewRuntime(chain.Config{ChainID: 31337}, nil)
	rt.OnFinish(table.ClearTransient)

	var h fhe.Handle
	h[0] = 9
	_, err := rt.Execute(context.Background(), alice, alice, func(tx *chain.Tx) error {
		table.AllowTransient(h, alice)
		require.True(t, table.IsAllowed(h, alice))
		require.False(t, table.IsAllowedPersistent(h, alice))
		return nil
	})
	require.NoError(t, err)
	require.False(t, table.IsAllowed(h, alice))
}

func TestExportImport(t *testing.T) {
	backend := mock.New()
	table := New()
	relay := NewRelay(table, backend, nil)
	rt := chain.NewRuntime(chain.Config{ChainID: 31337}, nil)

	h, err := backend.TrivialEncrypt(3, fhe.TypeEuint64)
	require.NoError(t, err)
	_, err = rt.Execute(context.Background(), alice, alice, func(tx *chain.Tx) error {
		return relay.Grant(tx, h, bob)
	})
	require.NoError(t, err)

	restored := New()
	restored.Import(table.Export())
	require.True(t, restored.IsAllowed(h, bob))
	require.False(t, restored.IsAllowed(h, alice))
}
