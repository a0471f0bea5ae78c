package fhe

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Type is the ciphertext type tag carried in every handle.
type Type uint8

// Ciphertext type tags. Values follow the coprocessor numbering.
const (
	TypeEbool   Type = 0
	TypeEuint64 Type = 5
)

// HandleVersion is stored in the last byte of every handle.
const HandleVersion byte = 0

func (t Type) String() string {
	switch t {
	case TypeEbool:
		return "ebool"
	case TypeEuint64:
		return "euint64"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

// Handle is an opaque 32-byte reference to a ciphertext held by the coprocessor.
// Bytes 0..29 identify the ciphertext, byte 30 is its Type and byte 31 the handle version.
type Handle [32]byte

// ZeroHandle is the uninitialized handle.
var ZeroHandle Handle

// NewHandle lays out a handle from a 32-byte digest and a type tag.
func NewHandle(digest [32]byte, t Type) Handle {
	var h Handle
	copy(h[:30], digest[:30])
	h[30] = byte(t)
	h[31] = HandleVersion
	return h
}

// DeriveHandle builds a deterministic handle for the result of op over operands.
// The nonce keeps results of identical operations distinct.
func DeriveHandle(hash func(...[]byte) [32]byte, op string, t Type, nonce uint64, operands ...Handle) Handle {
	parts := make([][]byte, 0, len(operands)+2)
	parts = append(parts, []byte(op))
	for i := range operands {
		parts = append(parts, operands[i][:])
	}
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	parts = append(parts, n[:])
	return NewHandle(hash(parts...), t)
}

// Type returns the ciphertext type encoded in the handle.
func (h Handle) Type() Type {
	return Type(h[30])
}

func (h Handle) IsZero() bool {
	return h == ZeroHandle
}

func (h Handle) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

// MarshalText encodes the handle as 0x-prefixed hex.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

// UnmarshalText decodes a 0x-prefixed hex handle.
func (h *Handle) UnmarshalText(input []byte) error {
	parsed, err := ParseHandle(string(input))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHandle parses a 0x-prefixed 32-byte hex string.
func ParseHandle(input string) (Handle, error) {
	data, err := hexutil.Decode(input)
	if err != nil {
		return Handle{}, fmt.Errorf("invalid handle %q: %w", input, err)
	}
	if len(data) != len(Handle{}) {
		return Handle{}, fmt.Errorf("invalid handle length %d", len(data))
	}
	var h Handle
	copy(h[:], data)
	return h, nil
}

// Euint64 is a handle to an encrypted 64-bit unsigned integer.
type Euint64 struct {
	Handle
}

// Ebool is a handle to an encrypted boolean.
type Ebool struct {
	Handle
}

// Uint64 wraps h as an encrypted integer reference.
func Uint64(h Handle) Euint64 {
	return Euint64{Handle: h}
}
