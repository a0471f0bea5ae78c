package indexer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/events"
	"hiddenLiquidity/internal/ledger"
	"hiddenLiquidity/internal/model"
	"hiddenLiquidity/internal/storage"
)

// RunConfig holds runtime settings for the indexer.
type RunConfig struct {
	ChainID           uint64
	Filter            Filter
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// PoolReader reads committed reserves. It is called while the runtime lock is held.
type PoolReader interface {
	GetPool(id ledger.PoolID) (ledger.Pool, error)
}

// SnapshotSink persists reserve handles per block.
type SnapshotSink interface {
	UpsertPoolSnapshots(ctx context.Context, snapshots []model.PoolSnapshot) error
}

type pendingReceipt struct {
	records   []model.LogRecord
	snapshots []model.PoolSnapshot
	block     uint64
}

// Runner streams committed receipts from the runtime and writes their logs to storage.
type Runner struct {
	cfg        RunConfig
	storage    storage.Storage
	logger     *zap.Logger
	decoder    *events.Decoder
	checkpoint *CheckpointStore
	seen       map[string]struct{}
	last       uint64

	exchange common.Address
	pools    PoolReader
	snapSink SnapshotSink

	flushMu sync.Mutex
	mu      sync.Mutex
	pending []pendingReceipt
	notify  chan struct{}
}

// NewRunner builds a Runner with its dependencies and resumes from the checkpoint.
func NewRunner(cfg RunConfig, storageSink storage.Storage, logger *zap.Logger) (*Runner, error) {
	if storageSink == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := events.NewDecoder()
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:        cfg,
		storage:    storageSink,
		logger:     logger,
		decoder:    decoder,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		seen:       make(map[string]struct{}),
		notify:     make(chan struct{}, 1),
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		r.last = cp.LastProcessedBlock
		r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock))
	}
	return r, nil
}

// TrackPools records the reserves of every pool an exchange log touches.
func (r *Runner) TrackPools(exchange common.Address, pools PoolReader, sink SnapshotSink) {
	r.exchange = exchange
	r.pools = pools
	r.snapSink = sink
}

// LastProcessed returns the last block written to storage.
func (r *Runner) LastProcessed() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Attach subscribes the runner to committed receipts of rt.
func (r *Runner) Attach(rt *chain.Runtime) {
	rt.Subscribe(r.capture)
}

func (r *Runner) capture(receipt *chain.Receipt) {
	records := ReceiptRecords(r.cfg.ChainID, receipt, time.Now())
	item := pendingReceipt{
		records:   records,
		snapshots: r.snapshotPools(receipt, records),
		block:     receipt.BlockNumber,
	}

	r.mu.Lock()
	r.pending = append(r.pending, item)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *Runner) snapshotPools(receipt *chain.Receipt, records []model.LogRecord) []model.PoolSnapshot {
	if r.pools == nil {
		return nil
	}
	exchange := strings.ToLower(r.exchange.Hex())
	touched := make(map[ledger.PoolID]struct{})
	var out []model.PoolSnapshot
	for _, record := range records {
		if strings.ToLower(record.Address) != exchange || !r.decoder.CanDecode(record.Topic0()) {
			continue
		}
		event, err := r.decoder.Decode(record)
		if err != nil || event.Pool == "" {
			continue
		}
		id, err := ledger.ParsePool(event.Pool)
		if err != nil {
			continue
		}
		if _, ok := touched[id]; ok {
			continue
		}
		touched[id] = struct{}{}

		pool, err := r.pools.GetPool(id)
		if err != nil {
			r.logger.Warn("pool snapshot", zap.String("pool", id.String()), zap.Error(err))
			continue
		}
		out = append(out, model.PoolSnapshot{
			ChainID:     r.cfg.ChainID,
			Pool:        id.String(),
			Exchange:    r.exchange.Hex(),
			BlockNumber: receipt.BlockNumber,
			TxHash:      receipt.TxHash.Hex(),
			ReserveBase: pool.ReserveBase.Handle.Hex(),
			ReserveEth:  pool.ReserveEth.Handle.Hex(),
			Timestamp:   receipt.Time,
		})
	}
	return out
}

// Run writes captured receipts until ctx is cancelled, then flushes what is left.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			if err := r.Flush(context.WithoutCancel(ctx)); err != nil {
				return err
			}
			return ctx.Err()
		case <-r.notify:
			if err := r.Flush(ctx); err != nil {
				return err
			}
		}
	}
}

// Flush writes every captured receipt to storage and advances the checkpoint.
func (r *Runner) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	items := r.pending
	r.pending = nil
	last := r.last
	r.mu.Unlock()

	if len(items) == 0 {
		return nil
	}

	var records []model.LogRecord
	var snapshots []model.PoolSnapshot
	for _, item := range items {
		if item.block <= last {
			continue
		}
		for _, record := range item.records {
			if !r.cfg.Filter.Match(record) || r.isDuplicate(record) {
				continue
			}
			records = append(records, record)
		}
		snapshots = append(snapshots, item.snapshots...)
		last = item.block
	}

	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		err := r.storage.PutLogBatch(ctx, records)
		if err != nil {
			r.logger.Warn("store logs failed", zap.Error(err), zap.Int("logs", len(records)))
		}
		return err
	})
	if err != nil {
		r.requeue(items)
		return fmt.Errorf("store logs: %w", err)
	}

	if r.snapSink != nil && len(snapshots) > 0 {
		err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
			return r.snapSink.UpsertPoolSnapshots(ctx, snapshots)
		})
		if err != nil {
			r.requeueSnapshots(items)
			return fmt.Errorf("store pool snapshots: %w", err)
		}
	}

	if err := r.checkpoint.Save(last); err != nil {
		return err
	}
	r.mu.Lock()
	if last > r.last {
		r.last = last
	}
	r.mu.Unlock()

	r.logger.Info("batch complete", zap.Int("logs", len(records)), zap.Int("snapshots", len(snapshots)), zap.Uint64("last_block", last))
	return nil
}

func (r *Runner) requeue(items []pendingReceipt) {
	for _, item := range items {
		for _, record := range item.records {
			delete(r.seen, record.Key())
		}
	}
	r.mu.Lock()
	r.pending = append(items, r.pending...)
	r.mu.Unlock()
}

// requeueSnapshots puts back the snapshots of items whose logs are already stored, so
// the checkpoint only moves once both writes went through.
func (r *Runner) requeueSnapshots(items []pendingReceipt) {
	retry := make([]pendingReceipt, 0, len(items))
	for _, item := range items {
		retry = append(retry, pendingReceipt{block: item.block, snapshots: item.snapshots})
	}
	r.mu.Lock()
	r.pending = append(retry, r.pending...)
	r.mu.Unlock()
}

func (r *Runner) isDuplicate(record model.LogRecord) bool {
	id := record.Key()
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
