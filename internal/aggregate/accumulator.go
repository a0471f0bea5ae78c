package aggregate

import (
	"encoding/json"
	"fmt"
	"strings"

	"hiddenLiquidity/internal/model"
)

// Accumulator holds activity counts for a pool window. Amounts are ciphertext handles,
// so only events and distinct participants are counted.
type Accumulator struct {
	ChainID     uint64
	Pool        string
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	AddCount    uint64
	RemoveCount uint64
	LastBlock   uint64
	LastTS      uint64
	FirstBlock  uint64

	traders   map[string]struct{}
	providers map[string]struct{}
}

func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:     record.ChainID,
		Pool:        record.Pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		LastBlock:   record.BlockNumber,
		LastTS:      record.Timestamp,
		FirstBlock:  record.BlockNumber,
		traders:     make(map[string]struct{}),
		providers:   make(map[string]struct{}),
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
		a.LastBlock = record.BlockNumber
	}
	if a.FirstBlock == 0 || record.BlockNumber < a.FirstBlock {
		a.FirstBlock = record.BlockNumber
	}

	switch record.EventName {
	case model.EventSwapped:
		var swap model.SwappedEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		a.SwapCount++
		a.traders[strings.ToLower(swap.Trader)] = struct{}{}
	case model.EventLiquidityAdded, model.EventLiquidityRemoved:
		var liq model.LiquidityEventData
		if err := json.Unmarshal(record.Decoded, &liq); err != nil {
			return fmt.Errorf("decode liquidity: %w", err)
		}
		if record.EventName == model.EventLiquidityAdded {
			a.AddCount++
		} else {
			a.RemoveCount++
		}
		a.providers[strings.ToLower(liq.Provider)] = struct{}{}
	}
	return nil
}

// Activity renders the accumulator as a window activity row.
func (a *Accumulator) Activity(windowSeconds uint64) model.PoolWindowActivity {
	return model.PoolWindowActivity{
		ChainID:        a.ChainID,
		Pool:           a.Pool,
		WindowSizeSecs: int64(windowSeconds),
		WindowStart:    unixUTC(a.WindowStart),
		WindowEnd:      unixUTC(a.WindowEnd),
		SwapCount:      a.SwapCount,
		AddCount:       a.AddCount,
		RemoveCount:    a.RemoveCount,
		Traders:        uint64(len(a.traders)),
		Providers:      uint64(len(a.providers)),
		LastBlock:      a.LastBlock,
	}
}
