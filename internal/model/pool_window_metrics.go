package model

import "time"

// PoolWindowActivity counts pool events in one time window. Amounts are encrypted, so
// only event counts and distinct participants are aggregated.
type PoolWindowActivity struct {
	ChainID        uint64    `json:"chain_id"`
	Pool           string    `json:"pool"`
	WindowSizeSecs int64     `json:"window_size_secs"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SwapCount      uint64    `json:"swap_count"`
	AddCount       uint64    `json:"add_count"`
	RemoveCount    uint64    `json:"remove_count"`
	Traders        uint64    `json:"traders"`
	Providers      uint64    `json:"providers"`
	LastBlock      uint64    `json:"last_block"`
}
