// Package input binds freshly encrypted client values to the (user, contract) pair that
// may submit them.
package input

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"hiddenLiquidity/internal/fhe"
)

// Proof is the decoded content of an input proof blob.
type Proof struct {
	User      common.Address
	Contract  common.Address
	ChainID   uint64
	Expiry    uint64
	Handles   []fhe.Handle
	Signature []byte
}

var (
	proofArgsOnce sync.Once
	proofArgs     abi.Arguments
	proofArgsErr  error
)

func proofArguments() (abi.Arguments, error) {
	proofArgsOnce.Do(func() {
		var types [6]abi.Type
		specs := []string{"address", "address", "uint64", "uint64", "bytes32[]", "bytes"}
		for i, spec := range specs {
			types[i], proofArgsErr = abi.NewType(spec, "", nil)
			if proofArgsErr != nil {
				return
			}
		}
		proofArgs = abi.Arguments{
			{Name: "user", Type: types[0]},
			{Name: "contract", Type: types[1]},
			{Name: "chainId", Type: types[2]},
			{Name: "expiry", Type: types[3]},
			{Name: "handles", Type: types[4]},
			{Name: "signature", Type: types[5]},
		}
	})
	return proofArgs, proofArgsErr
}

// Digest is the message the input signer signs.
func (p Proof) Digest() common.Hash {
	var nums [16]byte
	binary.BigEndian.PutUint64(nums[0:8], p.ChainID)
	binary.BigEndian.PutUint64(nums[8:16], p.Expiry)

	parts := make([][]byte, 0, len(p.Handles)+3)
	parts = append(parts, p.User.Bytes(), p.Contract.Bytes(), nums[:])
	for i := range p.Handles {
		parts = append(parts, p.Handles[i][:])
	}
	return crypto.Keccak256Hash(parts...)
}

// Encode packs the proof into its wire blob.
func (p Proof) Encode() ([]byte, error) {
	args, err := proofArguments()
	if err != nil {
		return nil, fmt.Errorf("proof abi: %w", err)
	}
	handles := make([][32]byte, len(p.Handles))
	for i, h := range p.Handles {
		handles[i] = h
	}
	blob, err := args.Pack(p.User, p.Contract, p.ChainID, p.Expiry, handles, p.Signature)
	if err != nil {
		return nil, fmt.Errorf("pack proof: %w", err)
	}
	return blob, nil
}

// DecodeProof parses a proof blob.
func DecodeProof(blob []byte) (Proof, error) {
	args, err := proofArguments()
	if err != nil {
		return Proof{}, fmt.Errorf("proof abi: %w", err)
	}
	values, err := args.Unpack(blob)
	if err != nil {
		return Proof{}, fmt.Errorf("unpack proof: %w", err)
	}
	if len(values) != len(args) {
		return Proof{}, fmt.Errorf("unpack proof: got %d fields", len(values))
	}

	user, ok1 := values[0].(common.Address)
	contract, ok2 := values[1].(common.Address)
	chainID, ok3 := values[2].(uint64)
	expiry, ok4 := values[3].(uint64)
	raw, ok5 := values[4].([][32]byte)
	sig, ok6 := values[5].([]byte)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return Proof{}, fmt.Errorf("unpack proof: unexpected field types")
	}

	handles := make([]fhe.Handle, len(raw))
	for i := range raw {
		handles[i] = fhe.Handle(raw[i])
	}
	return Proof{
		User:      user,
		Contract:  contract,
		ChainID:   chainID,
		Expiry:    expiry,
		Handles:   handles,
		Signature: sig,
	}, nil
}

// Signer recovers the address that signed the proof.
func (p Proof) Signer() (common.Address, error) {
	if len(p.Signature) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature length %d", len(p.Signature))
	}
	pub, err := crypto.SigToPub(p.Digest().Bytes(), p.Signature)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// Contains reports whether h is listed in the proof.
func (p Proof) Contains(h fhe.Handle) bool {
	for _, listed := range p.Handles {
		if listed == h {
			return true
		}
	}
	return false
}
