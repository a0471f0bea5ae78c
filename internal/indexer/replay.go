package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hiddenLiquidity/internal/model"
	"hiddenLiquidity/internal/storage"
)

// ReplayConfig bounds a history replay.
type ReplayConfig struct {
	FromBlock    uint64
	ToBlock      uint64
	BatchSize    uint64
	Filter       Filter
	MaxRetries   int
	RetryBackoff time.Duration
}

// Replay reads stored logs of [FromBlock, ToBlock] in block batches and hands each
// filtered batch to fn in chain order.
func Replay(ctx context.Context, src storage.LogSource, cfg ReplayConfig, logger *zap.Logger, fn func([]model.LogRecord) error) error {
	if src == nil {
		return fmt.Errorf("log source is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FromBlock > cfg.ToBlock {
		logger.Info("nothing to replay", zap.Uint64("from", cfg.FromBlock), zap.Uint64("to", cfg.ToBlock))
		return nil
	}

	ranges, err := SplitRange(cfg.FromBlock, cfg.ToBlock, cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var logs []model.LogRecord
		err := withRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			logs, err = src.LogsInRange(ctx, blockRange.From, blockRange.To)
			if err != nil {
				logger.Warn("read logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("read logs: %w", err)
		}

		filtered := logs[:0]
		for _, log := range logs {
			if cfg.Filter.Match(log) {
				filtered = append(filtered, log)
			}
		}
		if err := fn(filtered); err != nil {
			return err
		}
	}
	return nil
}
