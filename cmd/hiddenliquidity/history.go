package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/aggregate"
	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/config"
	"hiddenLiquidity/internal/events"
	"hiddenLiquidity/internal/indexer"
	"hiddenLiquidity/internal/model"
	"hiddenLiquidity/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Replay indexed logs as decoded events",
		RunE:  runHistory,
	}
	cmd.Flags().Uint64("from-block", 1, "start block (inclusive)")
	cmd.Flags().Uint64("to-block", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().Uint64("batch-size", 1000, "blocks per read")
	cmd.Flags().Bool("raw", false, "print raw log records instead of decoded events")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := e.logSource(ctx)
	if err != nil {
		return err
	}
	replayCfg, err := e.replayConfig(cmd)
	if err != nil {
		return err
	}
	decoder, err := events.NewDecoder()
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetBool("raw")

	var printed, failed int
	err = indexer.Replay(ctx, src, replayCfg, e.logger, func(logs []model.LogRecord) error {
		for _, record := range logs {
			if raw || !decoder.CanDecode(record.Topic0()) {
				if err := printLine(cmd, record); err != nil {
					return err
				}
				printed++
				continue
			}
			event, err := decoder.Decode(record)
			if err != nil {
				failed++
				e.logger.Warn("decode failed", zap.String("tx", record.TxHash), zap.Uint64("log_index", record.LogIndex), zap.Error(err))
				if err := printLine(cmd, model.NewDecodeError(record, err)); err != nil {
					return err
				}
				continue
			}
			if err := printLine(cmd, event); err != nil {
				return err
			}
			printed++
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("history complete",
		zap.Uint64("from", replayCfg.FromBlock),
		zap.Uint64("to", replayCfg.ToBlock),
		zap.Int("printed", printed),
		zap.Int("failed", failed),
	)
	return nil
}

func newActivityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Aggregate indexed events into per-pool window activity",
		RunE:  runActivity,
	}
	cmd.Flags().Duration("window", 5*time.Minute, "aggregation window (e.g. 1m, 5m, 1h)")
	cmd.Flags().Uint64("batch-size", 1000, "batch size for reads and DB writes")
	cmd.Flags().String("since", "", "recompute from timestamp (unix seconds or RFC3339)")
	cmd.Flags().String("activity-state", "", "optional local state file for progress tracking")
	return cmd
}

func runActivity(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	windowSeconds := uint64(e.cfg.Window.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}
	rawSince, _ := cmd.Flags().GetString("since")
	since, err := config.ParseTimestamp(rawSince)
	if err != nil {
		return fmt.Errorf("parse since: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := e.logSource(ctx)
	if err != nil {
		return err
	}

	var sink aggregate.ActivitySink
	var stateStore aggregate.StateStore
	statePath, _ := cmd.Flags().GetString("activity-state")
	if statePath != "" {
		stateStore = &aggregate.FileStateStore{Path: statePath}
	}
	if e.store != nil {
		sink = e.store
		if stateStore == nil {
			stateStore = aggregate.NewDBStateStore(e.store, e.cfg.ChainID, windowSeconds)
		}
	}

	agg, err := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     int(e.cfg.BatchSize),
		RecomputeFrom: since,
		StateStore:    stateStore,
	}, sink, e.logger.Named("aggregate"))
	if err != nil {
		return err
	}

	replayCfg, err := e.replayConfig(cmd)
	if err != nil {
		return err
	}
	var logs []model.LogRecord
	err = indexer.Replay(ctx, src, replayCfg, e.logger, func(batch []model.LogRecord) error {
		logs = append(logs, batch...)
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("activity start",
		zap.Int("logs", len(logs)),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Uint64("since", since),
		zap.Bool("postgres", e.store != nil),
	)
	activity, err := agg.Run(ctx, logs)
	if err != nil {
		return err
	}
	for _, a := range activity {
		if err := printLine(cmd, a); err != nil {
			return err
		}
	}
	return nil
}

// logSource reads from Postgres when a DSN is configured and from the JSONL output
// otherwise, the same place the indexer writes to.
func (e *env) logSource(ctx context.Context) (storage.LogSource, error) {
	if e.cfg.PGDSN == "" {
		return storage.NewJsonlStorage(e.cfg.Out), nil
	}
	store, err := e.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (e *env) replayConfig(cmd *cobra.Command) (indexer.ReplayConfig, error) {
	addresses, err := indexer.ParseAddresses(e.cfg.Addresses)
	if err != nil {
		return indexer.ReplayConfig{}, err
	}
	topic0, err := indexer.ParseTopic0(e.cfg.Topic0)
	if err != nil {
		return indexer.ReplayConfig{}, err
	}

	var from, to uint64
	if cmd.Flags().Lookup("from-block") != nil {
		from, _ = cmd.Flags().GetUint64("from-block")
		to, _ = cmd.Flags().GetUint64("to-block")
	}
	latest, err := e.latestBlock()
	if err != nil {
		return indexer.ReplayConfig{}, err
	}
	blocks, err := indexer.ResolveRange(from, to, latest)
	if err != nil {
		return indexer.ReplayConfig{}, err
	}

	return indexer.ReplayConfig{
		FromBlock:    blocks.From,
		ToBlock:      blocks.To,
		BatchSize:    e.cfg.BatchSize,
		Filter:       indexer.Filter{Addresses: addresses, Topic0: topic0},
		MaxRetries:   e.cfg.MaxRetries,
		RetryBackoff: e.cfg.RetryBackoff,
	}, nil
}

// latestBlock is the last block of the persisted world, or the indexer checkpoint when no
// world is saved.
func (e *env) latestBlock() (uint64, error) {
	var progress struct {
		Chain chain.State `json:"chain"`
	}
	ok, err := e.snapshots.Load(&progress)
	if err != nil {
		return 0, err
	}
	if ok {
		return progress.Chain.BlockNumber, nil
	}

	cp, ok, err := indexer.NewCheckpointStore(e.cfg.Checkpoint, e.cfg.CheckpointEnabled).Load()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("no deployment or checkpoint found at %s", e.snapshots.Path)
	}
	return cp.LastProcessedBlock, nil
}

func printLine(cmd *cobra.Command, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(line))
	return err
}
