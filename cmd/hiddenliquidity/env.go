package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/chain"
	"hiddenLiquidity/internal/config"
	"hiddenLiquidity/internal/deploy"
	"hiddenLiquidity/internal/fhe"
	"hiddenLiquidity/internal/fhe/mock"
	"hiddenLiquidity/internal/fhe/tfhe"
	"hiddenLiquidity/internal/indexer"
	"hiddenLiquidity/internal/storage"
	"hiddenLiquidity/internal/storage/postgres"
)

// env is what every command works against: configuration, logger, the deployed world
// and the indexer that records its logs.
type env struct {
	cfg       config.Config
	logger    *zap.Logger
	snapshots *storage.SnapshotStore
	world     *deploy.World
	runner    *indexer.Runner
	store     *postgres.Store
	persisted bool
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:       cfg,
		logger:    logger,
		snapshots: &storage.SnapshotStore{Path: cfg.StateFile},
	}, nil
}

func (e *env) deployConfig() (deploy.Config, error) {
	key, err := e.cfg.InputSigner()
	if err != nil {
		return deploy.Config{}, err
	}
	return deploy.Config{
		ChainID:        e.cfg.ChainID,
		Deployer:       e.cfg.DeployerAddress(),
		SignerKey:      key,
		ProofTTL:       e.cfg.ProofTTL,
		DecryptLatency: e.cfg.DecryptLatency,
	}, nil
}

func (e *env) newBackend() (fhe.Backend, error) {
	switch e.cfg.Backend {
	case "tfhe":
		backend, err := tfhe.New(e.logger.Named("tfhe"))
		if err != nil {
			return nil, fmt.Errorf("tfhe backend: %w", err)
		}
		return backend, nil
	default:
		return mock.New(), nil
	}
}

// restore loads the persisted world. Only mock worlds are persisted.
func (e *env) restore() error {
	if e.cfg.Backend != "mock" {
		return fmt.Errorf("%s worlds are not persisted, use serve --fresh or demo", e.cfg.Backend)
	}
	var snap deploy.Snapshot
	ok, err := e.snapshots.Load(&snap)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no deployment at %s, run deploy first", e.snapshots.Path)
	}

	dc, err := e.deployConfig()
	if err != nil {
		return err
	}
	world, err := deploy.Restore(dc, &snap, e.logger)
	if err != nil {
		return err
	}
	e.world = world
	e.persisted = true
	return nil
}

// index attaches an indexer runner to the world. Logs go to Postgres when a DSN is
// configured and to the JSONL output otherwise.
func (e *env) index(ctx context.Context) error {
	addresses, err := indexer.ParseAddresses(e.cfg.Addresses)
	if err != nil {
		return err
	}
	topic0, err := indexer.ParseTopic0(e.cfg.Topic0)
	if err != nil {
		return err
	}

	var sink storage.Storage = storage.NewJsonlStorage(e.cfg.Out)
	var snapshots indexer.SnapshotSink
	if e.cfg.PGDSN != "" {
		store, err := e.openStore(ctx)
		if err != nil {
			return err
		}
		sink = store
		snapshots = store
	}

	runner, err := indexer.NewRunner(indexer.RunConfig{
		ChainID:           e.cfg.ChainID,
		Filter:            indexer.Filter{Addresses: addresses, Topic0: topic0},
		CheckpointPath:    e.cfg.Checkpoint,
		CheckpointEnabled: e.cfg.CheckpointEnabled,
		MaxRetries:        e.cfg.MaxRetries,
		RetryBackoff:      e.cfg.RetryBackoff,
	}, sink, e.logger.Named("indexer"))
	if err != nil {
		return err
	}
	runner.TrackPools(e.world.Addresses.Exchange, e.world.Engine.Ledger(), snapshots)
	runner.Attach(e.world.Runtime)
	e.runner = runner
	return nil
}

func (e *env) openStore(ctx context.Context) (*postgres.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	store, err := postgres.NewStore(ctx, e.cfg.PGDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	e.store = store
	return store, nil
}

// persist saves the world snapshot. Worlds that were never persisted are skipped.
func (e *env) persist() error {
	if !e.persisted {
		return nil
	}
	snap, err := e.world.Snapshot()
	if err != nil {
		return err
	}
	return e.snapshots.Save(snap)
}

// commit flushes indexed logs and saves the world.
func (e *env) commit(ctx context.Context) error {
	if e.runner != nil {
		if err := e.runner.Flush(ctx); err != nil {
			return err
		}
	}
	return e.persist()
}

func (e *env) close() {
	if e.store != nil {
		e.store.Close()
	}
	_ = e.logger.Sync()
}

// withWorld restores the persisted world, runs fn and, when mutate is set, records
// whatever fn committed even if fn failed halfway.
func withWorld(cmd *cobra.Command, mutate bool, fn func(ctx context.Context, e *env) error) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.restore(); err != nil {
		return err
	}
	if mutate {
		if err := e.index(ctx); err != nil {
			return err
		}
	}

	runErr := fn(ctx, e)
	if !mutate {
		return runErr
	}
	if err := e.commit(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(runErr, fmt.Errorf("save state: %w", err))
	}
	return runErr
}

// sender resolves the --from flag, defaulting to the deployer.
func (e *env) sender(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return e.cfg.DeployerAddress(), nil
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid --%s address: %s", name, raw)
	}
	return common.HexToAddress(raw), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return err
}

type receiptOutput struct {
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	Logs        int         `json:"logs"`
	FHECost     uint64      `json:"fhe_cost"`
}

func summarize(receipt *chain.Receipt) receiptOutput {
	return receiptOutput{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		Logs:        len(receipt.Logs),
		FHECost:     receipt.FHECost,
	}
}
