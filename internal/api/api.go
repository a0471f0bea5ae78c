// Package api exposes the deployed exchange over HTTP for dashboards and scripts.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"hiddenLiquidity/internal/deploy"
)

// Config represents the configuration for the API HTTP server.
type Config struct {
	World *deploy.World
	// Persist, when set, runs after every committed call. A failure is reported to the
	// caller, the call itself stays committed.
	Persist func() error
	Logger  *zap.Logger
}

// API is the HTTP server in front of one deployed world.
type API struct {
	router  *chi.Mux
	world   *deploy.World
	persist func() error
	logger  *zap.Logger

	persistMu sync.Mutex
}

// New creates an API instance and its router.
func New(conf Config) (*API, error) {
	if conf.World == nil {
		return nil, fmt.Errorf("missing deployed world")
	}
	logger := conf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &API{
		world:   conf.World,
		persist: conf.Persist,
		logger:  logger,
	}
	a.initRouter()
	return a, nil
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// Serve listens on addr until ctx is cancelled.
func (a *API) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting api server", zap.String("listen", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown api: %w", err)
		}
		return nil
	}
}

func (a *API) registerHandlers() {
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		a.httpWriteOK(w)
	})
	a.router.Get(AddressesEndpoint, a.addresses)
	a.router.Get(PoolEndpoint, a.pool)
	a.router.Get(PositionEndpoint, a.position)
	a.router.Get(BalanceEndpoint, a.balance)

	a.router.Post(InputsEndpoint, a.encryptInput)
	a.router.Post(MintEndpoint, a.mint)
	a.router.Post(OperatorsEndpoint, a.setOperator)
	a.router.Post(AddLiquidityEndpoint, a.addLiquidity)
	a.router.Post(RemoveLiquidityEndpoint, a.removeLiquidity)
	a.router.Post(SwapEndpoint, a.swap)
	a.router.Post(DecryptEndpoint, a.decrypt)

	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		ErrResourceNotFound.With(r.URL.Path).Write(w)
	})
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.Timeout(45 * time.Second))

	a.registerHandlers()
}

// committed persists the world after a successful mutating call.
func (a *API) committed() error {
	if a.persist == nil {
		return nil
	}
	a.persistMu.Lock()
	defer a.persistMu.Unlock()
	if err := a.persist(); err != nil {
		return ErrPersistFailed.WithErr(err)
	}
	return nil
}
