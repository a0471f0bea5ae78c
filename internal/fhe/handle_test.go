package fhe

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func sum(parts ...[]byte) [32]byte {
	var out [32]byte
	for _, p := range parts {
		for i, b := range p {
			out[i%32] ^= b
		}
	}
	return out
}

func TestDeriveHandleLayout(t *testing.T) {
	a := DeriveHandle(sum, "add", TypeEuint64, 1)
	b := DeriveHandle(sum, "add", TypeEuint64, 2)

	require.NotEqual(t, a, b)
	require.Equal(t, TypeEuint64, a.Type())
	require.Equal(t, HandleVersion, a[31])

	le := DeriveHandle(sum, "le", TypeEbool, 1, a, b)
	require.Equal(t, TypeEbool, le.Type())
	require.Equal(t, "ebool", le.Type().String())
	require.Equal(t, "type(9)", Type(9).String())
}

func TestHandleText(t *testing.T) {
	h := DeriveHandle(sum, "encrypt", TypeEuint64, 7)

	parsed, err := ParseHandle(h.Hex())
	require.NoError(t, err)
	require.Equal(t, h, parsed)

	raw, err := json.Marshal(Uint64(h))
	require.NoError(t, err)
	require.Equal(t, `"`+h.Hex()+`"`, string(raw))

	var back Euint64
	require.NoError(t, json.Unmarshal(raw, &back))
	require.Equal(t, h, back.Handle)

	_, err = ParseHandle("0x1234")
	require.Error(t, err)
	_, err = ParseHandle("nothex")
	require.Error(t, err)
	require.True(t, ZeroHandle.IsZero())
}
