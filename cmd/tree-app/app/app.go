// Package app provides the tree-app server application.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/mongokit/cmd/tree-app/app/options"
	"github.com/kart-io/mongokit/internal/tree/router"
	"github.com/kart-io/mongokit/internal/tree/store"
	"github.com/kart-io/mongokit/pkg/component/mongodb"
	"github.com/kart-io/mongokit/pkg/component/storage"
	"github.com/kart-io/mongokit/pkg/infra/app"
	"github.com/kart-io/mongokit/pkg/infra/pool"
	"github.com/kart-io/mongokit/pkg/infra/tracing"
)

const (
	// Name is the name of the application.
	Name = "tree-app"

	commandDesc = `Tree node API server

Serves a tree of named nodes stored in MongoDB under /api/v1/tree-node.
Deleting a node deletes its subtree, root nodes can not be deleted.

Examples:
  # Start with default configuration
  tree-app

  # Connect to a replica set
  tree-app --mongodb.uri=mongodb://db-0,db-1/?replicaSet=rs0

  # Use config file
  tree-app -c /etc/tree-app/config.yaml

Configuration:
  Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (prefix: TREE_APP_)
  - Configuration file (YAML)
  - Default values (lowest priority)`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Tree node API server"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		ctx := setupSignalContext()
		return Run(ctx, opts)
	}
}

// Run starts every component and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, opts *options.ServerOptions) error {
	if _, err := opts.LogOptions.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Flush() }()

	logger.Infow("Starting tree-app server",
		"app", Name,
		"version", app.GetVersion(),
		"addr", opts.HTTPOptions.Addr,
		"mongodb", opts.MongoDBOptions.String(),
	)

	provider, err := tracing.NewProvider(opts.TracingOptions)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer shutdown("tracing", func(ctx context.Context) error { return provider.Shutdown(ctx) })

	if err := pool.InitGlobal(); err != nil {
		return fmt.Errorf("failed to initialize worker pools: %w", err)
	}
	defer pool.CloseGlobal()

	client, err := mongodb.NewWithContext(ctx, opts.MongoDBOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	storages := storage.NewManager()
	if err := storages.Register(client.Name(), client); err != nil {
		_ = client.Close()
		return err
	}
	defer func() {
		if err := storages.CloseAll(); err != nil {
			logger.Warnw("Failed to close storage clients", "error", err)
		}
	}()

	svc, err := store.NewTreeNodeService(client.ServiceDatabase())
	if err != nil {
		return err
	}
	if !opts.SkipIndexes {
		if err := svc.CreateIndexes(ctx); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
		logger.Infow("Indexes created", "collection", svc.CollectionName())
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.NewEngine()
	router.Register(engine, svc, storages)

	return serve(ctx, engine, opts)
}

func serve(ctx context.Context, handler http.Handler, opts *options.ServerOptions) error {
	srv := &http.Server{
		Addr:         opts.HTTPOptions.Addr,
		Handler:      handler,
		ReadTimeout:  opts.HTTPOptions.ReadTimeout,
		WriteTimeout: opts.HTTPOptions.WriteTimeout,
		IdleTimeout:  opts.HTTPOptions.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.HTTPOptions.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

func shutdown(name string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warnw("Shutdown failed", "component", name, "error", err)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
