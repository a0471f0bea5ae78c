package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/deploy"
	"hiddenLiquidity/internal/fhe/mock"
	"hiddenLiquidity/internal/indexer"
	"hiddenLiquidity/internal/model"
)

func newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the tokens and the exchange",
		RunE:  runDeploy,
	}
	cmd.Flags().Bool("force", false, "replace an existing deployment and its indexed history")
	return cmd
}

func runDeploy(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.Backend != "mock" {
		return fmt.Errorf("%s worlds are not persisted, use serve --fresh or demo", e.cfg.Backend)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var existing deploy.Snapshot
	found, err := e.snapshots.Load(&existing)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	if found && !force {
		return fmt.Errorf("deployment exists at %s, use --force to replace it", e.snapshots.Path)
	}
	if force {
		if err := e.resetHistory(ctx); err != nil {
			return err
		}
	}

	dc, err := e.deployConfig()
	if err != nil {
		return err
	}
	world, err := deploy.Deploy(ctx, dc, mock.New(), e.logger)
	if err != nil {
		return err
	}
	e.world = world
	e.persisted = true
	if err := e.index(ctx); err != nil {
		return err
	}
	if err := e.commit(ctx); err != nil {
		return err
	}

	e.logger.Info("deployment saved", zap.String("state_file", e.snapshots.Path))
	return printJSON(cmd, addressesOutput(world))
}

// resetHistory drops the snapshot and everything indexed from the previous deployment,
// whose block numbers a new deployment would reuse.
func (e *env) resetHistory(ctx context.Context) error {
	if err := e.snapshots.Remove(); err != nil {
		return err
	}
	if err := indexer.NewCheckpointStore(e.cfg.Checkpoint, e.cfg.CheckpointEnabled).Reset(); err != nil {
		return fmt.Errorf("reset checkpoint: %w", err)
	}
	if e.cfg.PGDSN != "" {
		store, err := e.openStore(ctx)
		if err != nil {
			return err
		}
		if err := store.Reset(ctx, e.cfg.ChainID); err != nil {
			return err
		}
	} else if err := os.Remove(e.cfg.Out); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove logs: %w", err)
	}
	e.logger.Info("previous deployment removed")
	return nil
}

func newAddressesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "addresses",
		Short: "Print deployed token and exchange addresses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withWorld(cmd, false, func(_ context.Context, e *env) error {
				return printJSON(cmd, addressesOutput(e.world))
			})
		},
	}
}

type addressesView struct {
	ChainID     uint64            `json:"chain_id"`
	Backend     string            `json:"backend"`
	Block       uint64            `json:"block"`
	InputSigner common.Address    `json:"input_signer"`
	Contracts   deploy.Addresses  `json:"contracts"`
	Tokens      []model.TokenMeta `json:"tokens"`
}

func addressesOutput(w *deploy.World) addressesView {
	return addressesView{
		ChainID:     w.Config.ChainID,
		Backend:     w.Backend.Name(),
		Block:       w.Runtime.BlockNumber(),
		InputSigner: w.Relayer.Signer(),
		Contracts:   w.Addresses,
		Tokens:      w.TokenMetas(),
	}
}
