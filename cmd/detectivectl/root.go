package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/detective/internal/adapters/kv"
	app "github.com/okian/detective/internal/app"
	"github.com/okian/detective/internal/config"
	"github.com/okian/detective/pkg/logger"
)

// options holds the persistent flags shared by every command.
type options struct {
	driver    string
	path      string
	logLevel  string
	timeout   time.Duration
	runnerTTL time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cfg := config.New(context.Background())

	root := &cobra.Command{
		Use:           "detectivectl",
		Short:         "Inspect and maintain a detective store",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return logger.SetLevelString(opts.logLevel)
		},
	}

	root.PersistentFlags().StringVar(&opts.driver, "store", config.StoreSQLite, "Store driver: memory or sqlite")
	root.PersistentFlags().StringVar(&opts.path, "db", cfg.StorePath, "SQLite database file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Operation timeout")
	root.PersistentFlags().DurationVar(&opts.runnerTTL, "run-timeout", 5*time.Second, "Code run timeout, 0 for none")

	root.AddCommand(
		newLeaderboardCmd(opts),
		newProgressCmd(opts),
		newGradeCmd(opts),
		newRunCmd(opts),
		newThemeCmd(opts),
		newAttemptsCmd(opts),
	)
	return root
}

// withSession opens the store, runs fn against a write-through session and
// closes everything afterwards.
func withSession(cmd *cobra.Command, opts *options, fn func(ctx context.Context, svc *app.Service) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	var (
		store kv.Store
		closeStore = func() error { return nil }
	)
	switch opts.driver {
	case config.StoreMemory:
		store = kv.NewMemoryStore()
	case config.StoreSQLite:
		s, err := kv.OpenSQLite(ctx, opts.path)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		store, closeStore = s, s.Close
	default:
		return fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, opts.driver)
	}
	defer func() { _ = closeStore() }()

	svc := app.New(store, app.WithFlushDelay(0), app.WithRunnerTimeout(opts.runnerTTL))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = svc.Stop(ctx) }()

	return fn(ctx, svc)
}
