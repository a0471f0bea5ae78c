package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/events"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/model"
	"hiddenLiquidity/internal/storage"
)

var (
	exchangeAddr = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	provider     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
)

type flakySink struct {
	failures int
	batches  [][]model.LogRecord
}

func (s *flakySink) PutLogBatch(_ context.Context, logs []model.LogRecord) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.batches = append(s.batches, append([]model.LogRecord(nil), logs...))
	return nil
}

func (s *flakySink) records() []model.LogRecord {
	var out []model.LogRecord
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

type staticPools map[ledger.PoolID]ledger.Pool

func (p staticPools) GetPool(id ledger.PoolID) (ledger.Pool, error) {
	pool, ok := p[id]
	if !ok {
		return ledger.Pool{}, ledger.ErrUnknownPool
	}
	return pool, nil
}

type snapshotRecorder struct {
	failures  int
	snapshots []model.PoolSnapshot
}

func (s *snapshotRecorder) UpsertPoolSnapshots(_ context.Context, snapshots []model.PoolSnapshot) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("snapshots unavailable")
	}
	s.snapshots = append(s.snapshots, snapshots...)
	return nil
}

func handle(b byte) fhe.Euint64 {
	var digest [32]byte
	digest[0] = b
	return fhe.Uint64(fhe.NewHandle(digest, fhe.TypeEuint64))
}

func emitLiquidity(t *testing.T, rt *chain.Runtime, pool ledger.PoolID) *chain.Receipt {
	t.Helper()
	receipt, err := rt.Execute(context.Background(), provider, exchangeAddr, func(tx *chain.Tx) error {
		log, err := events.LiquidityAdded(exchangeAddr, provider, pool, handle(1), handle(2), handle(3))
		if err != nil {
			return err
		}
		tx.Emit(log)
		return nil
	})
	require.NoError(t, err)
	return receipt
}

func TestRunnerFlushWritesReceipts(t *testing.T) {
	rt := chain.NewRuntime(chain.Config{ChainID: 31337}, nil)
	sink := &flakySink{failures: 2}
	dir := t.TempDir()
	runner, err := NewRunner(RunConfig{
		ChainID:           31337,
		CheckpointPath:    filepath.Join(dir, "checkpoint.json"),
		CheckpointEnabled: true,
		MaxRetries:        3,
		RetryBackoff:      time.Millisecond,
	}, sink, nil)
	require.NoError(t, err)
	runner.Attach(rt)

	emitLiquidity(t, rt, ledger.PoolUSDC)
	emitLiquidity(t, rt, ledger.PoolUSDT)

	require.NoError(t, runner.Flush(context.Background()))
	records := sink.records()
	require.Len(t, records, 2)
	require.Equal(t, uint64(1), records[0].BlockNumber)
	require.Equal(t, uint64(2), records[1].BlockNumber)
	require.Equal(t, uint64(31337), records[0].ChainID)
	require.Equal(t, uint64(2), runner.LastProcessed())

	// A new runner resumes after the checkpoint and ignores replayed blocks.
	sink2 := &flakySink{}
	resumed, err := NewRunner(RunConfig{
		ChainID:           31337,
		CheckpointPath:    filepath.Join(dir, "checkpoint.json"),
		CheckpointEnabled: true,
	}, sink2, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), resumed.LastProcessed())
	resumed.Attach(rt)
	emitLiquidity(t, rt, ledger.PoolUSDC)
	require.NoError(t, resumed.Flush(context.Background()))
	require.Len(t, sink2.records(), 1)
	require.Equal(t, uint64(3), sink2.records()[0].BlockNumber)
}

func TestRunnerRequeuesOnFailure(t *testing.T) {
	rt := chain.NewRuntime(chain.Config{ChainID: 1}, nil)
	sink := &flakySink{failures: 1}
	runner, err := NewRunner(RunConfig{ChainID: 1, MaxRetries: 0}, sink, nil)
	require.NoError(t, err)
	runner.Attach(rt)

	emitLiquidity(t, rt, ledger.PoolUSDC)
	require.Error(t, runner.Flush(context.Background()))
	require.Empty(t, sink.records())

	require.NoError(t, runner.Flush(context.Background()))
	require.Len(t, sink.records(), 1)
}

func TestRunnerSkipsFailedUnits(t *testing.T) {
	rt := chain.NewRuntime(chain.Config{ChainID: 1}, nil)
	sink := &flakySink{}
	runner, err := NewRunner(RunConfig{ChainID: 1}, sink, nil)
	require.NoError(t, err)
	runner.Attach(rt)

	_, err = rt.Execute(context.Background(), provider, exchangeAddr, func(tx *chain.Tx) error {
		log, err := events.LiquidityAdded(exchangeAddr, provider, ledger.PoolUSDC, handle(1), handle(2), handle(3))
		require.NoError(t, err)
		tx.Emit(log)
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, runner.Flush(context.Background()))
	require.Empty(t, sink.records())
}

func TestRunnerFilterAndSnapshots(t *testing.T) {
	rt := chain.NewRuntime(chain.Config{ChainID: 1}, nil)
	sink := &flakySink{}
	runner, err := NewRunner(RunConfig{
		ChainID: 1,
		Filter:  Filter{Addresses: []common.Address{exchangeAddr}},
	}, sink, nil)
	require.NoError(t, err)

	pools := staticPools{ledger.PoolUSDT: {ReserveBase: handle(7), ReserveEth: handle(8)}}
	snaps := &snapshotRecorder{}
	runner.TrackPools(exchangeAddr, pools, snaps)
	runner.Attach(rt)

	_, err = rt.Execute(context.Background(), provider, exchangeAddr, func(tx *chain.Tx) error {
		other, err := events.OperatorSet(common.HexToAddress("0x0b"), provider, exchangeAddr, 10)
		if err != nil {
			return err
		}
		tx.Emit(other)
		log, err := events.LiquidityAdded(exchangeAddr, provider, ledger.PoolUSDT, handle(1), handle(2), handle(3))
		if err != nil {
			return err
		}
		tx.Emit(log)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, runner.Flush(context.Background()))

	records := sink.records()
	require.Len(t, records, 1)
	require.Equal(t, exchangeAddr.Hex(), records[0].Address)
	require.Equal(t, uint64(1), records[0].LogIndex)

	require.Len(t, snaps.snapshots, 1)
	require.Equal(t, "usdt", snaps.snapshots[0].Pool)
	require.Equal(t, handle(7).Handle.Hex(), snaps.snapshots[0].ReserveBase)
}

func TestRunnerRetriesSnapshotsWithoutRewritingLogs(t *testing.T) {
	rt := chain.NewRuntime(chain.Config{ChainID: 1}, nil)
	sink := &flakySink{}
	runner, err := NewRunner(RunConfig{ChainID: 1, MaxRetries: 0}, sink, nil)
	require.NoError(t, err)

	pools := staticPools{ledger.PoolUSDC: {ReserveBase: handle(7), ReserveEth: handle(8)}}
	snaps := &snapshotRecorder{failures: 1}
	runner.TrackPools(exchangeAddr, pools, snaps)
	runner.Attach(rt)

	emitLiquidity(t, rt, ledger.PoolUSDC)
	require.Error(t, runner.Flush(context.Background()))
	require.Len(t, sink.records(), 1)
	require.Empty(t, snaps.snapshots)
	require.Zero(t, runner.LastProcessed())

	require.NoError(t, runner.Flush(context.Background()))
	require.Len(t, sink.records(), 1)
	require.Len(t, snaps.snapshots, 1)
	require.Equal(t, uint64(1), snaps.snapshots[0].BlockNumber)
	require.Equal(t, uint64(1), runner.LastProcessed())
}

func TestRunStopsOnCancel(t *testing.T) {
	rt := chain.NewRuntime(chain.Config{ChainID: 1}, nil)
	sink := storage.NewJsonlStorage(filepath.Join(t.TempDir(), "logs.jsonl"))
	runner, err := NewRunner(RunConfig{ChainID: 1}, sink, nil)
	require.NoError(t, err)
	runner.Attach(rt)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	emitLiquidity(t, rt, ledger.PoolUSDC)
	require.Eventually(t, func() bool { return runner.LastProcessed() == 1 }, time.Second, 5*time.Millisecond)

	emitLiquidity(t, rt, ledger.PoolUSDC)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	logs, err := sink.ReadLogs()
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestReplay(t *testing.T) {
	sink := storage.NewJsonlStorage(filepath.Join(t.TempDir(), "logs.jsonl"))
	var batch []model.LogRecord
	for block := uint64(1); block <= 5; block++ {
		batch = append(batch, model.LogRecord{BlockNumber: block, TxHash: "0x01", Address: exchangeAddr.Hex(), Topics: []string{}})
	}
	require.NoError(t, sink.PutLogBatch(context.Background(), batch))

	var calls int
	var seen []uint64
	err := Replay(context.Background(), sink, ReplayConfig{FromBlock: 2, ToBlock: 5, BatchSize: 2}, nil, func(logs []model.LogRecord) error {
		calls++
		for _, l := range logs {
			seen = append(seen, l.BlockNumber)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, []uint64{2, 3, 4, 5}, seen)
}

func TestFilterTopic0(t *testing.T) {
	topics, err := ParseTopic0([]string{"0x11" + strings.Repeat("00", 31)})
	require.NoError(t, err)
	f := Filter{Topic0: topics}
	require.True(t, f.Match(model.LogRecord{Topics: []string{topics[0].Hex()}}))
	require.False(t, f.Match(model.LogRecord{Topics: []string{}}))

	_, err = ParseTopic0([]string{"0x1234"})
	require.Error(t, err)
	_, err = ParseAddresses([]string{"nope"})
	require.Error(t, err)
}
