package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/memlens/memlens/internal/server"
	"github.com/memlens/memlens/pkg/cache"
	"github.com/memlens/memlens/pkg/pipeline"
	"github.com/memlens/memlens/pkg/store"
)

// shutdownTimeout bounds graceful shutdown after the context is cancelled.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command for running the HTTP layout API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP layout API",
		Long: `Run the HTTP layout API.

The serve command exposes the pipeline over HTTP: POST a snapshot to
/api/layout for a one-shot layout, or store snapshots under /api/snapshots
and request layouts for them by ID.

Snapshots are stored in MongoDB when [store].mongo_uri is configured,
otherwise in process memory. Layouts are cached in Redis when
[cache].redis_addr is configured, otherwise on the local filesystem.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, then :7151)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable layout caching")

	return cmd
}

// runServe wires the store, cache, and pipeline into an HTTP server and
// blocks until the context is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	if addr == "" {
		addr = c.Config.Server.Addr
	}

	st, err := c.newStore(ctx)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = st.Close(closeCtx)
	}()

	layoutCache, err := c.newServeCache(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize cache: %w", err)
	}

	// On a shared Redis the keys are namespaced; the file cache directory
	// is already ours alone.
	var keyer cache.Keyer
	if !noCache && c.Config.Cache.RedisAddr != "" {
		keyer = cache.NewScopedKeyer(nil, appName+":")
	}

	runner := pipeline.NewRunner(layoutCache, keyer, c.Logger)
	defer runner.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(runner, st, c.Logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	c.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newStore builds the snapshot store from config.
func (c *CLI) newStore(ctx context.Context) (store.Store, error) {
	if c.Config.Store.MongoURI == "" {
		c.Logger.Debug("no mongo_uri configured, using in-memory snapshot store")
		return store.NewMemoryStore(), nil
	}
	return store.NewMongoStore(ctx, store.MongoConfig{
		URI:        c.Config.Store.MongoURI,
		Database:   c.Config.Store.Database,
		Collection: c.Config.Store.Collection,
	})
}

// newServeCache builds the layout cache from config. Redis takes precedence
// over the file cache so multiple replicas can share layouts.
func (c *CLI) newServeCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if c.Config.Cache.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Config.Cache.RedisAddr,
			Password: c.Config.Cache.RedisPassword,
			DB:       c.Config.Cache.RedisDB,
		})
	}
	return c.newCache(false)
}
