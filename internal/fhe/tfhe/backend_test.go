package tfhe

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/fhe"
)

// Key generation and bootstrapping take long enough that these only run on request.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	if os.Getenv("HIDDENLIQ_TFHE_TEST") != "1" {
		t.Skip("set HIDDENLIQ_TFHE_TEST=1 to run tfhe tests")
	}
	b, err := New(nil)
	require.NoError(t, err)
	return b
}

func TestEncryptedAddAndSelect(t *testing.T) {
	b := newTestBackend(t)

	x, err := b.Encrypt(1200, fhe.TypeEuint64)
	require.NoError(t, err)
	y, err := b.TrivialEncrypt(400, fhe.TypeEuint64)
	require.NoError(t, err)

	sum, err := b.Add(x, y)
	require.NoError(t, err)
	v, err := b.Decrypt(sum)
	require.NoError(t, err)
	require.Equal(t, uint64(1600), v)

	le, err := b.Le(x, y)
	require.NoError(t, err)
	least, err := b.Select(le, x, y)
	require.NoError(t, err)
	v, err = b.Decrypt(least)
	require.NoError(t, err)
	require.Equal(t, uint64(400), v)
}

func TestRejectsBoolEncrypt(t *testing.T) {
	b := newTestBackend(t)
	_, err := b.Encrypt(1, fhe.TypeEbool)
	require.ErrorIs(t, err, fhe.ErrTypeMismatch)
	_, err = b.ScalarDiv(fhe.ZeroHandle, 0)
	require.ErrorIs(t, err, fhe.ErrDivisionByZero)
}

func TestBlake3SumIsFramed(t *testing.T) {
	require.NotEqual(t, blake3Sum([]byte("ab"), []byte("c")), blake3Sum([]byte("a"), []byte("bc")))
	require.Equal(t, blake3Sum([]byte("add")), blake3Sum([]byte("add")))
}
