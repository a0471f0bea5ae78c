package fhe_test

import (
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/fhe/mock"
)

var (
	exchange = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	stranger = common.HexToAddress("0x00000000000000000000000000000000000000f0")
)

type grants map[fhe.Handle]map[common.Address]bool

func (g grants) IsAllowed(h fhe.Handle, account common.Address) bool {
	return g[h][account]
}

func (g grants) AllowTransient(h fhe.Handle, account common.Address) {
	if g[h] == nil {
		g[h] = make(map[common.Address]bool)
	}
	g[h][account] = true
}

func newArith(t *testing.T) (*fhe.Arith, *mock.Backend, *fhe.Meter) {
	t.Helper()
	backend := mock.New()
	meter := &fhe.Meter{}
	return fhe.NewArith(backend, grants{}, exchange, meter), backend, meter
}

func constant(t *testing.T, a *fhe.Arith, v uint64) fhe.Euint64 {
	t.Helper()
	x, err := a.AsEuint64(v)
	require.NoError(t, err)
	return x
}

func plain(t *testing.T, b *mock.Backend, x fhe.Euint64) uint64 {
	t.Helper()
	v, err := b.Decrypt(x.Handle)
	require.NoError(t, err)
	return v
}

func TestArithPrimitives(t *testing.T) {
	a, backend, meter := newArith(t)
	x := constant(t, a, 12000)
	y := constant(t, a, 3000)

	sum, err := a.Add(x, y)
	require.NoError(t, err)
	require.Equal(t, uint64(15000), plain(t, backend, sum))

	diff, err := a.Sub(x, y)
	require.NoError(t, err)
	require.Equal(t, uint64(9000), plain(t, backend, diff))

	quot, err := a.DivConst(x, 3000)
	require.NoError(t, err)
	require.Equal(t, uint64(4), plain(t, backend, quot))

	prod, err := a.MulConst(quot, 3000)
	require.NoError(t, err)
	require.Equal(t, uint64(12000), plain(t, backend, prod))

	least, err := a.Min(x, y)
	require.NoError(t, err)
	require.Equal(t, uint64(3000), plain(t, backend, least))

	want := 2*fhe.CostOf(fhe.OpTrivial) + fhe.CostOf(fhe.OpAdd) + fhe.CostOf(fhe.OpSub) +
		fhe.CostOf(fhe.OpScalarDiv) + fhe.CostOf(fhe.OpScalarMul) + fhe.CostOf(fhe.OpLe) + fhe.CostOf(fhe.OpSelect)
	require.Equal(t, want, meter.Used())
	require.Equal(t, uint64(8), meter.Ops())
	require.Equal(t, want, meter.Reset())
	require.Zero(t, meter.Used())
}

func TestArithWrapsAt64Bits(t *testing.T) {
	a, backend, _ := newArith(t)

	under, err := a.Sub(constant(t, a, 1), constant(t, a, 2))
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), plain(t, backend, under))

	over, err := a.MulConst(constant(t, a, 1<<63), 2)
	require.NoError(t, err)
	require.Zero(t, plain(t, backend, over))
}

func TestArithRejectsForeignHandles(t *testing.T) {
	a, backend, meter := newArith(t)
	mine := constant(t, a, 5)

	h, err := backend.TrivialEncrypt(5, fhe.TypeEuint64)
	require.NoError(t, err)
	_, err = a.Add(mine, fhe.Uint64(h))
	require.ErrorIs(t, err, fhe.ErrNotAllowed)

	other := fhe.NewArith(backend, grants{}, stranger, nil)
	_, err = other.DivConst(mine, 2)
	require.ErrorIs(t, err, fhe.ErrNotAllowed)
	require.Equal(t, fhe.CostOf(fhe.OpTrivial), meter.Used())
}

func TestArithChecksTypes(t *testing.T) {
	a, _, _ := newArith(t)
	x := constant(t, a, 1)
	le, err := a.LessOrEqual(x, x)
	require.NoError(t, err)

	_, err = a.Add(x, fhe.Euint64{Handle: le.Handle})
	require.ErrorIs(t, err, fhe.ErrTypeMismatch)
	_, err = a.Select(fhe.Ebool{Handle: x.Handle}, x, x)
	require.ErrorIs(t, err, fhe.ErrTypeMismatch)
	_, err = a.DivConst(x, 0)
	require.ErrorIs(t, err, fhe.ErrDivisionByZero)
}

func TestNilMeter(t *testing.T) {
	var m *fhe.Meter
	require.Zero(t, m.Used())
	require.Zero(t, m.Ops())
	require.Zero(t, m.Reset())
}
