package aggregate

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/events"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/indexer"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/model"
)

var (
	exchange = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type memorySink struct {
	rows []model.PoolWindowActivity
}

func (s *memorySink) UpsertActivity(_ context.Context, activity []model.PoolWindowActivity) error {
	s.rows = append(s.rows, activity...)
	return nil
}

func h(b byte) fhe.Euint64 {
	var digest [32]byte
	digest[0] = b
	return fhe.Uint64(fhe.NewHandle(digest, fhe.TypeEuint64))
}

func records(t *testing.T, block, ts uint64, logs ...*types.Log) []model.LogRecord {
	t.Helper()
	for i, l := range logs {
		l.BlockNumber = block
		l.Index = uint(i)
		l.TxHash = common.BigToHash(common.Big1)
	}
	return indexer.ReceiptRecords(1, &chain.Receipt{BlockNumber: block, Time: ts, Logs: logs}, time.Unix(0, 0))
}

func mustLog(t *testing.T) func(*types.Log, error) *types.Log {
	return func(l *types.Log, err error) *types.Log {
		t.Helper()
		require.NoError(t, err)
		return l
	}
}

func TestAggregatorCountsPerWindow(t *testing.T) {
	must := mustLog(t)
	var logs []model.LogRecord
	logs = append(logs, records(t, 1, 100,
		must(events.LiquidityAdded(exchange, alice, ledger.PoolUSDC, h(1), h(2), h(3))),
		must(events.ConfidentialTransfer(common.HexToAddress("0x0c"), alice, exchange, h(4))),
	)...)
	logs = append(logs, records(t, 2, 110, must(events.Swapped(exchange, bob, ledger.USDCToETH, h(5), h(6))))...)
	logs = append(logs, records(t, 3, 120, must(events.Swapped(exchange, bob, ledger.ETHToUSDC, h(7), h(8))))...)
	logs = append(logs, records(t, 4, 130, must(events.Swapped(exchange, alice, ledger.ETHToUSDT, h(9), h(10))))...)
	logs = append(logs, records(t, 5, 400, must(events.LiquidityRemoved(exchange, alice, ledger.PoolUSDC, h(11), h(12), h(13))))...)

	sink := &memorySink{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "agg.json")}
	agg, err := NewAggregator(Config{WindowSeconds: 300, StateStore: state}, sink, nil)
	require.NoError(t, err)

	rows, err := agg.Run(context.Background(), logs)
	require.NoError(t, err)
	require.Equal(t, rows, sink.rows)
	require.Len(t, rows, 3)

	byKey := make(map[string]model.PoolWindowActivity)
	for _, r := range rows {
		byKey[r.Pool+"@"+r.WindowStart.Format(time.RFC3339)] = r
	}

	first := byKey["usdc@1970-01-01T00:00:00Z"]
	require.Equal(t, uint64(2), first.SwapCount)
	require.Equal(t, uint64(1), first.AddCount)
	require.Equal(t, uint64(1), first.Traders)
	require.Equal(t, uint64(1), first.Providers)
	require.Equal(t, uint64(3), first.LastBlock)

	usdt := byKey["usdt@1970-01-01T00:00:00Z"]
	require.Equal(t, uint64(1), usdt.SwapCount)

	later := byKey["usdc@1970-01-01T00:05:00Z"]
	require.Equal(t, uint64(1), later.RemoveCount)
	require.Equal(t, int64(300), later.WindowSizeSecs)

	last, ok, err := state.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(400), last)

	// A second run resumes after the saved timestamp.
	again, err := NewAggregator(Config{WindowSeconds: 300, StateStore: state}, nil, nil)
	require.NoError(t, err)
	rows, err = again.Run(context.Background(), logs)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestAggregatorRejectsZeroWindow(t *testing.T) {
	_, err := NewAggregator(Config{}, nil, nil)
	require.Error(t, err)
}
