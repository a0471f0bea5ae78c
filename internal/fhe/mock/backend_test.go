package mock

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/fhe"
)

func TestSelectBlendsBranches(t *testing.T) {
	b := New()
	x, err := b.Encrypt(10, fhe.TypeEuint64)
	require.NoError(t, err)
	y, err := b.Encrypt(20, fhe.TypeEuint64)
	require.NoError(t, err)

	le, err := b.Le(x, y)
	require.NoError(t, err)
	require.Equal(t, fhe.TypeEbool, le.Type())
	ge, err := b.Le(y, x)
	require.NoError(t, err)

	picked, err := b.Select(le, x, y)
	require.NoError(t, err)
	v, err := b.Decrypt(picked)
	require.NoError(t, err)
	require.Equal(t, uint64(10), v)

	picked, err = b.Select(ge, x, y)
	require.NoError(t, err)
	v, err = b.Decrypt(picked)
	require.NoError(t, err)
	require.Equal(t, uint64(20), v)
}

func TestIdenticalOperationsGetDistinctHandles(t *testing.T) {
	b := New()
	first, err := b.TrivialEncrypt(0, fhe.TypeEuint64)
	require.NoError(t, err)
	second, err := b.TrivialEncrypt(0, fhe.TypeEuint64)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestBackendErrors(t *testing.T) {
	b := New()
	x, err := b.Encrypt(9, fhe.TypeEuint64)
	require.NoError(t, err)

	_, err = b.Add(x, fhe.Handle{1})
	require.ErrorIs(t, err, fhe.ErrUnknownHandle)
	_, err = b.Select(x, x, x)
	require.ErrorIs(t, err, fhe.ErrTypeMismatch)
	_, err = b.ScalarDiv(x, 0)
	require.ErrorIs(t, err, fhe.ErrDivisionByZero)
	_, err = b.Encrypt(2, fhe.TypeEbool)
	require.ErrorIs(t, err, fhe.ErrTypeMismatch)
	_, err = b.Decrypt(fhe.ZeroHandle)
	require.ErrorIs(t, err, fhe.ErrUnknownHandle)
}

func TestExportImport(t *testing.T) {
	b := New()
	x, err := b.Encrypt(40, fhe.TypeEuint64)
	require.NoError(t, err)
	_, err = b.ScalarDiv(x, 3)
	require.NoError(t, err)

	state := b.Export()
	require.Len(t, state.Entries, 2)
	require.Equal(t, uint64(2), state.Nonce)

	restored := New()
	restored.Import(state)
	require.Equal(t, state, restored.Export())
	require.True(t, restored.Exists(x))

	// New handles continue from the saved nonce.
	next, err := restored.Add(x, x)
	require.NoError(t, err)
	require.Equal(t, uint64(3), restored.Export().Nonce)
	v, err := restored.Decrypt(next)
	require.NoError(t, err)
	require.Equal(t, uint64(80), v)
}
