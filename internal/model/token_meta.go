package model

// TokenMeta describes a deployed confidential token. Pool names the exchange pool that
// quotes the token against cETH and is empty for cETH itself.
type TokenMeta struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	Pool     string `json:"pool,omitempty"`
}
