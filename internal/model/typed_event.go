package model

import "encoding/json"

// EventRef locates a decoded event and names it.
type EventRef struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Address     string `json:"address"`
	EventName   string `json:"event_name"`
	Timestamp   uint64 `json:"timestamp"`
	FHECost     uint64 `json:"fhe_cost"`
	Pool        string `json:"pool,omitempty"`
}

// NewEventRef copies the position of log. pool is empty for token events.
func NewEventRef(log LogRecord, name, pool string) EventRef {
	return EventRef{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		FHECost:     log.FHECost,
		Pool:        pool,
	}
}

// TypedEvent is a decoded exchange or token event. Amounts stay ciphertext handles.
type TypedEvent struct {
	EventRef
	Decoded any        `json:"decoded"`
	Raw     *RawLogRef `json:"raw,omitempty"`
}

// TypedEventRecord is a TypedEvent read back before its payload type is known.
type TypedEventRecord struct {
	EventRef
	Decoded json.RawMessage `json:"decoded"`
	Raw     *RawLogRef      `json:"raw,omitempty"`
}

// RawLogRef points back at the undecoded log.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}
