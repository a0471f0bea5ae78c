package indexer

import (
	"errors"
	"fmt"
)

// ErrEmptyHistory is returned when nothing was mined yet.
var ErrEmptyHistory = errors.New("no blocks mined yet")

// BlockRange is an inclusive range of runtime blocks.
type BlockRange struct {
	From uint64
	To   uint64
}

// Len returns the number of blocks in the range.
func (r BlockRange) Len() uint64 {
	return r.To - r.From + 1
}

// ResolveRange turns user bounds into a range of mined blocks. Block numbers start at one,
// to of zero means latest and bounds past latest are clamped.
func ResolveRange(from, to, latest uint64) (BlockRange, error) {
	if latest == 0 {
		return BlockRange{}, ErrEmptyHistory
	}
	if from == 0 {
		from = 1
	}
	if to == 0 || to > latest {
		to = latest
	}
	if from > to {
		return BlockRange{}, fmt.Errorf("from block %d is past block %d", from, to)
	}
	return BlockRange{From: from, To: to}, nil
}

// SplitRange cuts [from, to] into consecutive ranges of at most batchSize blocks.
func SplitRange(from, to, batchSize uint64) ([]BlockRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to block must be >= from block")
	}

	var ranges []BlockRange
	for start := from; ; start += batchSize {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, BlockRange{From: start, To: end})
		if end == to {
			return ranges, nil
		}
	}
}
