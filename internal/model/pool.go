package model

// PoolSnapshot records the reserve handles of a pool after a block.
type PoolSnapshot struct {
	ChainID     uint64 `json:"chain_id"`
	Pool        string `json:"pool"`
	Exchange    string `json:"exchange"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	ReserveBase string `json:"reserve_base"`
	ReserveEth  string `json:"reserve_eth"`
	Timestamp   uint64 `json:"timestamp"`
}
