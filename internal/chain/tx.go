package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Tx is the context of one atomic unit of work.
type Tx struct {
	Hash        common.Hash
	From        common.Address
	To          common.Address
	ChainID     uint64
	BlockNumber uint64
	BlockHash   common.Hash
	Time        uint64

	journal []func()
	logs    []*types.Log
}

// Journal records undo, replayed in reverse order if the unit fails.
func (tx *Tx) Journal(undo func()) {
	tx.journal = append(tx.journal, undo)
}

// Emit appends a log to the unit. Logs of a failed unit are dropped.
func (tx *Tx) Emit(log *types.Log) {
	log.BlockNumber = tx.BlockNumber
	log.BlockHash = tx.BlockHash
	log.TxHash = tx.Hash
	log.TxIndex = 0
	log.Index = uint(len(tx.logs))
	tx.logs = append(tx.logs, log)
}

// Logs returns the logs emitted so far.
func (tx *Tx) Logs() []*types.Log {
	return tx.logs
}

func (tx *Tx) revert() {
	for i := len(tx.journal) - 1; i >= 0; i-- {
		tx.journal[i]()
	}
	tx.journal = nil
	tx.logs = nil
}

// Receipt is the result of a committed unit.
type Receipt struct {
	TxHash      common.Hash    `json:"tx_hash"`
	BlockNumber uint64         `json:"block_number"`
	BlockHash   common.Hash    `json:"block_hash"`
	Time        uint64         `json:"time"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Status      uint64         `json:"status"`
	Logs        []*types.Log   `json:"logs"`
	FHECost     uint64         `json:"fhe_cost"`
	FHEOps      uint64         `json:"fhe_ops"`
}
