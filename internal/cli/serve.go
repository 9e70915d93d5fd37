package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/patchbay"
	"github.com/aretw0/patchbay/internal/config"
	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/internal/presentation/tui"
	"github.com/aretw0/patchbay/pkg/adapters/file"
	httpAdapter "github.com/aretw0/patchbay/pkg/adapters/http"
	"github.com/aretw0/patchbay/pkg/adapters/memory"
	"github.com/aretw0/patchbay/pkg/adapters/redis"
	"github.com/aretw0/patchbay/pkg/observability"
	"github.com/aretw0/patchbay/pkg/persistence/middleware"
	"github.com/aretw0/patchbay/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions contains the configuration for the Serve command.
type ServeOptions struct {
	Path string
	// Addr overrides server.addr.
	Addr string
	// State keeps the edited patch in a JSON file across restarts. With Redis
	// configured the patch is kept there instead.
	State  string
	Watch  bool
	Debug  bool
	Banner bool

	Out io.Writer
	// Ready is called with the listening address once the server accepts
	// connections.
	Ready func(addr string)
}

// Serve runs the engine in real time behind the HTTP editing API until ctx
// is done, then saves the patch to the configured store.
func Serve(ctx context.Context, cfg *config.Config, opts ServeOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	if opts.Banner {
		tui.PrintBanner(out, patchbay.Version)
	}
	logger, err := createLogger(out, cfg.Log, opts.Debug)
	if err != nil {
		return err
	}
	for _, w := range cfg.Validate() {
		logger.Warn("config", "warning", w)
	}

	var (
		feed  ports.LogFeed
		store ports.SnapshotStore
	)
	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		feed = redis.NewFeedFromClient(client,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithCapacity(cfg.Redis.Capacity),
			redis.WithLogger(logger),
		)
		store = redis.NewSnapshotStore(client, "default")
	} else {
		feed = memory.NewFeed(cfg.Redis.Capacity)
		if opts.State != "" {
			store = file.NewSnapshotStore(opts.State)
		}
	}

	if store != nil && cfg.Server.StateKey != "" {
		store, err = sealStore(cfg.Server, store)
		if err != nil {
			return err
		}
	}

	hub := httpAdapter.NewHub(logger)
	metrics := observability.NewMetrics()
	sink := ports.MultiSink(feed, hub, logging.NewConsoleSink(out))

	tp, err := observability.InitTracing(ctx, tracingConfig(cfg))
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.WithoutCancel(ctx))

	extra := []patchbay.Option{
		patchbay.WithPreviews(),
		patchbay.WithLogSink(sink),
		patchbay.WithLifecycleHooks(metrics.Hooks()),
	}
	if tp.Enabled() {
		extra = append(extra, patchbay.WithTracer(tp.Tracer()))
	}
	engine, err := createEngine(cfg, logger, opts.Debug, extra...)
	if err != nil {
		return err
	}
	defer engine.Close()

	src, err := initialSource(ctx, store, opts.Path)
	if err != nil {
		return err
	}
	if err := engine.Load(ctx, src); err != nil {
		return err
	}
	if opts.Watch {
		if _, ok := src.(ports.Watchable); ok {
			if err := engine.Watch(ctx, src); err != nil {
				return err
			}
		} else {
			logger.Warn("Patch source cannot be watched", "path", opts.Path)
		}
	}

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler: httpAdapter.NewHandler(engine,
			httpAdapter.WithKeys(engine.Keyboard()),
			httpAdapter.WithConsole(feed, hub),
			httpAdapter.WithMetrics(metrics.Handler()),
			httpAdapter.WithVersion(patchbay.Version),
			httpAdapter.WithLogger(logger),
		),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(ln)
	}()
	engineErrors := make(chan error, 1)
	go func() {
		engineErrors <- engine.Run(ctx)
	}()

	printSystemMessage(out, "Serving on http://%s", ln.Addr())
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	var runErr error
	select {
	case err := <-serverErrors:
		runErr = fmt.Errorf("server error: %w", err)
	case err := <-engineErrors:
		if err != nil {
			runErr = fmt.Errorf("engine error: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("Graceful shutdown did not complete", "err", err)
		_ = srv.Close()
	}

	if store != nil {
		if err := store.Save(shutdownCtx, engine.Snapshot()); err != nil {
			logger.Error("Failed to save patch", "err", err)
		} else {
			logger.Info("Patch saved", "nodes", len(engine.Snapshot().Nodes))
		}
	}
	printSystemMessage(out, "Server stopped.")
	return runErr
}

// initialSource prefers a non-empty stored patch over path.
func initialSource(ctx context.Context, store ports.SnapshotStore, path string) (ports.SnapshotSource, error) {
	if store != nil {
		snap, err := store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if len(snap.Nodes) > 0 {
			return memory.NewSource(snap), nil
		}
	}
	return openSource(path)
}

// sealStore encrypts node scripts written to store with the configured keys.
func sealStore(cfg config.ServerConfig, store ports.SnapshotStore) (ports.SnapshotStore, error) {
	active, err := middleware.ParseKey(cfg.StateKey)
	if err != nil {
		return nil, fmt.Errorf("server.state_key: %w", err)
	}
	sc := middleware.SealingConfig{ActiveKey: active}
	for i, s := range cfg.StateFallbackKeys {
		key, err := middleware.ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("server.state_fallback_keys[%d]: %w", i, err)
		}
		sc.FallbackKeys = append(sc.FallbackKeys, key)
	}
	mw, err := middleware.NewSealingMiddleware(sc)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, mw), nil
}
