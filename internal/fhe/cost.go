package fhe

import "sync/atomic"

// Op names a homomorphic primitive.
type Op string

const (
	OpTrivial   Op = "trivialEncrypt"
	OpAdd       Op = "add"
	OpSub       Op = "sub"
	OpScalarMul Op = "scalarMul"
	OpScalarDiv Op = "scalarDiv"
	OpLe        Op = "le"
	OpSelect    Op = "select"
)

// Costs charged per primitive on 64-bit operands.
var opCosts = map[Op]uint64{
	OpTrivial:   30000,
	OpAdd:       65000,
	OpSub:       65000,
	OpScalarMul: 150000,
	OpScalarDiv: 500000,
	OpLe:        60000,
	OpSelect:    100000,
}

// CostOf returns the fixed cost of op.
func CostOf(op Op) uint64 {
	return opCosts[op]
}

// Meter accumulates the cost of evaluated primitives.
type Meter struct {
	used atomic.Uint64
	ops  atomic.Uint64
}

func (m *Meter) charge(op Op) {
	if m == nil {
		return
	}
	m.used.Add(opCosts[op])
	m.ops.Add(1)
}

// Used returns the accumulated cost.
func (m *Meter) Used() uint64 {
	if m == nil {
		return 0
	}
	return m.used.Load()
}

// Ops returns the number of evaluated primitives.
func (m *Meter) Ops() uint64 {
	if m == nil {
		return 0
	}
	return m.ops.Load()
}

// Reset zeroes the meter and returns the previous cost.
func (m *Meter) Reset() uint64 {
	if m == nil {
		return 0
	}
	m.ops.Store(0)
	return m.used.Swap(0)
}
