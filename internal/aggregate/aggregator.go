// Package aggregate rolls decoded exchange events up into per-pool activity windows.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"hiddenLiquidity/internal/events"
	"hiddenLiquidity/internal/model"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// ActivitySink persists finished windows.
type ActivitySink interface {
	UpsertActivity(ctx context.Context, activity []model.PoolWindowActivity) error
}

// Aggregator aggregates exchange events into pool window activity.
type Aggregator struct {
	cfg          Config
	sink         ActivitySink
	decoder      *events.Decoder
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink ActivitySink, logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowSeconds == 0 {
		return nil, fmt.Errorf("window seconds must be > 0")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	decoder, err := events.NewDecoder()
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		decoder:      decoder,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}, nil
}

// Run aggregates logs given in chain order and returns every window it produced.
func (a *Aggregator) Run(ctx context.Context, logs []model.LogRecord) ([]model.PoolWindowActivity, error) {
	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.PoolWindowActivity
	batch := make([]model.PoolWindowActivity, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, counted, skipped, failed int

	for _, log := range logs {
		total++
		if log.Timestamp <= startTs || !a.decoder.CanDecode(log.Topic0()) {
			skipped++
			continue
		}

		record, err := a.decode(log)
		if err != nil {
			failed++
			a.logger.Warn("decode event", zap.Error(err), zap.String("tx", log.TxHash), zap.Uint64("log_index", log.LogIndex))
			continue
		}
		if record.Pool == "" {
			skipped++
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		acc := a.accumulators[record.Pool]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, acc.Activity(a.cfg.WindowSeconds))
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[record.Pool] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Pool), zap.String("event", record.EventName))
			continue
		}
		counted++

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.flush(ctx, batch); err != nil {
				return nil, err
			}
			out = append(out, batch...)
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return nil, err
			}
		}
	}

	pools := make([]string, 0, len(a.accumulators))
	for pool := range a.accumulators {
		pools = append(pools, pool)
	}
	sort.Strings(pools)
	for _, pool := range pools {
		batch = append(batch, a.accumulators[pool].Activity(a.cfg.WindowSeconds))
	}
	a.accumulators = make(map[string]*Accumulator)

	if err := a.flush(ctx, batch); err != nil {
		return nil, err
	}
	out = append(out, batch...)

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return nil, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("counted", counted),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
		zap.Int("windows", len(out)),
	)
	return out, nil
}

func (a *Aggregator) decode(log model.LogRecord) (model.TypedEventRecord, error) {
	event, err := a.decoder.Decode(log)
	if err != nil {
		return model.TypedEventRecord{}, err
	}
	decoded, err := json.Marshal(event.Decoded)
	if err != nil {
		return model.TypedEventRecord{}, fmt.Errorf("marshal decoded: %w", err)
	}
	return model.TypedEventRecord{EventRef: event.EventRef, Decoded: decoded, Raw: event.Raw}, nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flush(ctx context.Context, batch []model.PoolWindowActivity) error {
	if a.sink == nil || len(batch) == 0 {
		return nil
	}
	if err := a.sink.UpsertActivity(ctx, batch); err != nil {
		return fmt.Errorf("upsert activity: %w", err)
	}
	return nil
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func unixUTC(ts uint64) time.Time {
	return time.Unix(int64(ts), 0).UTC()
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
