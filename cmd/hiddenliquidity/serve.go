package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hiddenLiquidity/internal/api"
	"hiddenLiquidity/internal/deploy"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the exchange over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().Bool("fresh", false, "serve a new in-memory deployment instead of the persisted one")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fresh, _ := cmd.Flags().GetBool("fresh")
	if fresh {
		err = e.deployFresh(ctx)
	} else {
		err = e.restore()
	}
	if err != nil {
		return err
	}

	conf := api.Config{World: e.world, Logger: e.logger.Named("api")}
	if !fresh {
		if err := e.index(ctx); err != nil {
			return err
		}
		conf.Persist = e.persist
	}
	server, err := api.New(conf)
	if err != nil {
		return err
	}

	e.logger.Info("serve start",
		zap.String("listen", e.cfg.Listen),
		zap.String("backend", e.world.Backend.Name()),
		zap.Bool("fresh", fresh),
		zap.String("exchange", e.world.Addresses.Exchange.Hex()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Serve(gctx, e.cfg.Listen)
	})
	if e.runner != nil {
		g.Go(func() error {
			err := e.runner.Run(gctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return e.persist()
}

// deployFresh deploys a world that lives only as long as the process.
func (e *env) deployFresh(ctx context.Context) error {
	backend, err := e.newBackend()
	if err != nil {
		return err
	}
	dc, err := e.deployConfig()
	if err != nil {
		return err
	}
	world, err := deploy.Deploy(ctx, dc, backend, e.logger)
	if err != nil {
		return err
	}
	e.world = world
	return nil
}
