package model

import (
	"encoding/json"
	"fmt"
)

// LogRecord is the normalized representation of an exchange log for storage.
type LogRecord struct {
	ChainID     uint64   `json:"chain_id"`
	BlockNumber uint64   `json:"block_number"`
	BlockHash   string   `json:"block_hash"`
	TxHash      string   `json:"tx_hash"`
	TxIndex     uint64   `json:"tx_index"`
	LogIndex    uint64   `json:"log_index"`
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	Removed     bool     `json:"removed"`
	Timestamp   uint64   `json:"timestamp"`
	FHECost     uint64   `json:"fhe_cost,omitempty"`
	IngestedAt  string   `json:"ingested_at"`
}

// Key identifies the log within the chain.
func (lr LogRecord) Key() string {
	return fmt.Sprintf("%d:%s:%d", lr.BlockNumber, lr.TxHash, lr.LogIndex)
}

// Topic0 returns the event signature topic or "".
func (lr LogRecord) Topic0() string {
	if len(lr.Topics) == 0 {
		return ""
	}
	return lr.Topics[0]
}

// UnmarshalJSON decodes a LogRecord, tolerating a null topics list.
func (lr *LogRecord) UnmarshalJSON(data []byte) error {
	type Alias LogRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Topics == nil {
		a.Topics = []string{}
	}
	*lr = LogRecord(a)
	return nil
}
