// Package events defines the exchange and token logs and decodes stored log records.
package events

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const exchangeABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": true, "internalType": "uint8", "name": "pool", "type": "uint8"},
      {"indexed": false, "internalType": "euint64", "name": "reserveBase", "type": "bytes32"},
      {"indexed": false, "internalType": "euint64", "name": "reserveEth", "type": "bytes32"},
      {"indexed": false, "internalType": "euint64", "name": "share", "type": "bytes32"}
    ],
    "name": "LiquidityAdded",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "provider", "type": "address"},
      {"indexed": true, "internalType": "uint8", "name": "pool", "type": "uint8"},
      {"indexed": false, "internalType": "euint64", "name": "reserveBase", "type": "bytes32"},
      {"indexed": false, "internalType": "euint64", "name": "reserveEth", "type": "bytes32"},
      {"indexed": false, "internalType": "euint64", "name": "share", "type": "bytes32"}
    ],
    "name": "LiquidityRemoved",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "trader", "type": "address"},
      {"indexed": true, "internalType": "uint8", "name": "direction", "type": "uint8"},
      {"indexed": false, "internalType": "euint64", "name": "amountIn", "type": "bytes32"},
      {"indexed": false, "internalType": "euint64", "name": "amountOut", "type": "bytes32"}
    ],
    "name": "Swapped",
    "type": "event"
  }
]`

const tokenABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "euint64", "name": "amount", "type": "bytes32"}
    ],
    "name": "ConfidentialTransfer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "holder", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "operator", "type": "address"},
      {"indexed": false, "internalType": "uint48", "name": "until", "type": "uint48"}
    ],
    "name": "OperatorSet",
    "type": "event"
  }
]`

var (
	exchangeABI     abi.ABI
	exchangeABIOnce sync.Once
	exchangeABIErr  error

	tokenABI     abi.ABI
	tokenABIOnce sync.Once
	tokenABIErr  error
)

// ExchangeABI returns the parsed exchange event ABI.
func ExchangeABI() (abi.ABI, error) {
	exchangeABIOnce.Do(func() {
		exchangeABI, exchangeABIErr = abi.JSON(strings.NewReader(exchangeABIJSON))
	})
	return exchangeABI, exchangeABIErr
}

// TokenABI returns the parsed confidential token event ABI.
func TokenABI() (abi.ABI, error) {
	tokenABIOnce.Do(func() {
		tokenABI, tokenABIErr = abi.JSON(strings.NewReader(tokenABIJSON))
	})
	return tokenABI, tokenABIErr
}
