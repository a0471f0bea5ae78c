package model

// Decoded event names.
const (
	EventLiquidityAdded       = "LiquidityAdded"
	EventLiquidityRemoved     = "LiquidityRemoved"
	EventSwapped              = "Swapped"
	EventConfidentialTransfer = "ConfidentialTransfer"
	EventOperatorSet          = "OperatorSet"
)

// LiquidityEventData is the decoded LiquidityAdded and LiquidityRemoved payload.
// Amounts are ciphertext handles; only authorized accounts can decrypt them.
type LiquidityEventData struct {
	Provider    string `json:"provider"`
	Pool        string `json:"pool"`
	ReserveBase string `json:"reserve_base"`
	ReserveEth  string `json:"reserve_eth"`
	Share       string `json:"share"`
}

// SwappedEventData is the decoded Swapped payload.
type SwappedEventData struct {
	Trader    string `json:"trader"`
	Direction string `json:"direction"`
	Pool      string `json:"pool"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}

// ConfidentialTransferEventData is the decoded token transfer payload.
type ConfidentialTransferEventData struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// OperatorSetEventData is the decoded operator grant payload.
type OperatorSetEventData struct {
	Holder   string `json:"holder"`
	Operator string `json:"operator"`
	Until    uint64 `json:"until"`
}
