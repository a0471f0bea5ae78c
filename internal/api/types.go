package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/deploy"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/model"
)

type AddressesResponse struct {
	ChainID   uint64            `json:"chain_id"`
	Backend   string            `json:"backend"`
	Contracts deploy.Addresses  `json:"contracts"`
	Tokens    []model.TokenMeta `json:"tokens"`
	Block     uint64            `json:"block"`
}

type PoolResponse struct {
	Pool        string     `json:"pool"`
	ReserveBase fhe.Handle `json:"reserve_base"`
	ReserveEth  fhe.Handle `json:"reserve_eth"`
}

type PositionResponse struct {
	User      common.Address `json:"user"`
	ShareUSDC fhe.Handle     `json:"share_usdc"`
	ShareUSDT fhe.Handle     `json:"share_usdt"`
}

type BalanceResponse struct {
	Token   string         `json:"token"`
	Holder  common.Address `json:"holder"`
	Balance fhe.Handle     `json:"balance"`
}

type InputRequest struct {
	Contract common.Address `json:"contract"`
	User     common.Address `json:"user"`
	Values   []uint64       `json:"values"`
}

type MintRequest struct {
	Token  string         `json:"token"`
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

type OperatorRequest struct {
	Holder common.Address `json:"holder"`
	// Token may be empty to authorize every token.
	Token string `json:"token,omitempty"`
	Until uint64 `json:"until"`
}

type AddLiquidityRequest struct {
	Sender     common.Address `json:"sender"`
	Pool       string         `json:"pool"`
	BaseHandle fhe.Handle     `json:"base_handle"`
	BaseProof  hexutil.Bytes  `json:"base_proof"`
	EthHandle  fhe.Handle     `json:"eth_handle"`
	// EthProof defaults to BaseProof when both handles came from one input.
	EthProof hexutil.Bytes `json:"eth_proof,omitempty"`
}

type RemoveLiquidityRequest struct {
	Sender      common.Address `json:"sender"`
	Pool        string         `json:"pool"`
	ShareHandle fhe.Handle     `json:"share_handle"`
	Proof       hexutil.Bytes  `json:"proof"`
}

type SwapRequest struct {
	Sender    common.Address `json:"sender"`
	Direction string         `json:"direction"`
	Handle    fhe.Handle     `json:"handle"`
	Proof     hexutil.Bytes  `json:"proof"`
}

type LiquidityResponse struct {
	Receipt  *chain.Receipt `json:"receipt"`
	Pool     string         `json:"pool"`
	Base     fhe.Handle     `json:"base_amount"`
	Eth      fhe.Handle     `json:"eth_amount"`
	Share    fhe.Handle     `json:"share"`
	Position fhe.Handle     `json:"position"`
}

type SwapResponse struct {
	Receipt   *chain.Receipt `json:"receipt"`
	Direction string         `json:"direction"`
	AmountIn  fhe.Handle     `json:"amount_in"`
	AmountOut fhe.Handle     `json:"amount_out"`
}

type DecryptRequest struct {
	Handle   fhe.Handle     `json:"handle"`
	Contract common.Address `json:"contract"`
	User     common.Address `json:"user"`
}

type DecryptResponse struct {
	Handle fhe.Handle `json:"handle"`
	Value  uint64     `json:"value"`
}
