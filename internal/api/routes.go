package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// AddressesEndpoint lists the deployed contracts and token metadata
	AddressesEndpoint = "/addresses"

	PoolURLParam    = "pool"
	AddressURLParam = "address"
	TokenURLParam   = "token"
	// PoolEndpoint returns the reserve handles of a pool
	PoolEndpoint = "/pools/{" + PoolURLParam + "}"
	// PositionEndpoint returns the share handles of a provider
	PositionEndpoint = "/positions/{" + AddressURLParam + "}"
	// BalanceEndpoint returns the balance handle of a holder
	BalanceEndpoint = "/balances/{" + TokenURLParam + "}/{" + AddressURLParam + "}"

	// InputsEndpoint encrypts values and returns handles with their proof
	InputsEndpoint = "/inputs"
	// MintEndpoint credits test tokens
	MintEndpoint = "/mint"
	// OperatorsEndpoint authorizes the exchange to move a holder's tokens
	OperatorsEndpoint       = "/operators"
	AddLiquidityEndpoint    = "/liquidity/add"
	RemoveLiquidityEndpoint = "/liquidity/remove"
	SwapEndpoint            = "/swap"
	// DecryptEndpoint serves user decryption through the gateway
	DecryptEndpoint = "/decrypt"
)
