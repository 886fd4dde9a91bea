package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/detective/internal/adapters/http/api"
	"github.com/okian/detective/internal/adapters/kv"
	app "github.com/okian/detective/internal/app"
	"github.com/okian/detective/internal/config"
	"github.com/okian/detective/internal/domain/model"
	"github.com/okian/detective/pkg/logger"
	"github.com/okian/detective/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	sessionMetricsInterval = 5 * time.Second
	leaderboardMaxLimit    = 100
)

func main() {
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		fmt.Fprintln(os.Stderr, "failed to initialize logging:", err)
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "detective stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// run serves the session API until ctx is canceled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	svc := newSession(cfg, store, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	srv := newServer(ctx, cfg, svc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info(gctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info(ctx, "shutting down server...")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown: %w", err))
		}
		if err := svc.Stop(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("session stop: %w", err))
		}
		log.Info(ctx, "server stopped")
		return errors.Join(errs...)
	})
	g.Go(func() error {
		startSystemMetricsUpdater(gctx)
		return nil
	})
	g.Go(func() error {
		startSessionMetricsUpdater(gctx, svc)
		return nil
	})
	return g.Wait()
}

// openStore opens the configured key-value backend.
func openStore(ctx context.Context, cfg *config.Config) (kv.Store, func() error, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		s, err := kv.OpenSQLite(ctx, cfg.StorePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open store: %w", err)
		}
		return s, s.Close, nil
	default:
		return kv.NewMemoryStore(), func() error { return nil }, nil
	}
}

// newSession builds the session from configuration.
func newSession(cfg *config.Config, store kv.Store, log logger.Logger) *app.Service {
	return app.New(store,
		app.WithLogger(log.Named("session")),
		app.WithFlushDelay(time.Duration(cfg.FlushDelayMS)*time.Millisecond),
		app.WithRelayURL(cfg.RelayURL),
		app.WithRelayTimeout(time.Duration(cfg.RelayTimeoutMS)*time.Millisecond),
		app.WithQueueSize(cfg.RelayQueueSize),
		app.WithWorkerCount(cfg.RelayWorkerCount),
		app.WithDedupeSize(cfg.RelayDedupeSize),
		app.WithRunnerTimeout(time.Duration(cfg.RunnerTimeoutMS)*time.Millisecond),
		app.WithDefaultIdentity(model.Identity{Name: cfg.DefaultAgent, Group: cfg.DefaultGroup}),
	)
}

func newServer(ctx context.Context, cfg *config.Config, svc *app.Service) *http.Server {
	mux := http.NewServeMux()
	api.NewServer(svc, leaderboardMaxLimit).Register(ctx, mux)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startSessionMetricsUpdater publishes session gauges until ctx is done.
func startSessionMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(sessionMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSessionMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

func updateSessionMetrics(svc *app.Service) {
	stats := svc.GetStats()
	metrics.UpdateBatchPending(stats.PendingWrites)
	if stats.RelayEnabled {
		metrics.UpdateQueueSize(stats.RelayQueued)
		metrics.UpdateQueueCapacity(stats.RelayCapacity)
	}
}
