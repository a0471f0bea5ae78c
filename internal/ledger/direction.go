package ledger

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownDirection = errors.New("unknown swap direction")

// Direction is one of the four supported swaps.
type Direction uint8

const (
	USDCToETH Direction = 0
	ETHToUSDC Direction = 1
	USDTToETH Direction = 2
	ETHToUSDT Direction = 3
)

var Directions = []Direction{USDCToETH, ETHToUSDC, USDTToETH, ETHToUSDT}

func (d Direction) Valid() bool {
	return d <= ETHToUSDT
}

// Pool returns the pool the swap trades against.
func (d Direction) Pool() PoolID {
	if d == USDTToETH || d == ETHToUSDT {
		return PoolUSDT
	}
	return PoolUSDC
}

// BaseIn reports whether the trader pays the base asset.
func (d Direction) BaseIn() bool {
	return d == USDCToETH || d == USDTToETH
}

func (d Direction) String() string {
	switch d {
	case USDCToETH:
		return "usdc-eth"
	case ETHToUSDC:
		return "eth-usdc"
	case USDTToETH:
		return "usdt-eth"
	case ETHToUSDT:
		return "eth-usdt"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection accepts the CLI form, e.g. "usdc-eth".
func ParseDirection(s string) (Direction, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, d := range Directions {
		if d.String() == needle {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}
