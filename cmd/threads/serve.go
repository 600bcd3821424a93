package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/radutopala/threads/internal/api"
	"github.com/radutopala/threads/internal/auth"
	"github.com/radutopala/threads/internal/logging"
	"github.com/radutopala/threads/internal/metrics"
	"github.com/radutopala/threads/internal/retention"
	"github.com/radutopala/threads/internal/thread"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the API server and purge scheduler",
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve()
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			return migrate()
		},
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Hard-delete records past the retention period",
		RunE: func(_ *cobra.Command, _ []string) error {
			return purge()
		},
	}
}

// apiServer is the interface used by serve() to decouple from api.Server for testing.
type apiServer interface {
	Start(addr string) error
	Stop(ctx context.Context) error
}

var newAPIServer = func(threads api.ThreadOpener, resolver auth.Resolver, m *metrics.Metrics, logger *slog.Logger) apiServer {
	return api.NewServer(threads, resolver, m, logger)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
var signalContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func serve() error {
	cfg, err := configLoad()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting threads", "db_path", cfg.DBPath)

	store, err := newSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	ctx, cancel := signalContext()
	defer cancel()

	purger := retention.NewPurger(store, cfg.Retention, logger)
	if err := purger.Start(ctx, cfg.PurgeSchedule); err != nil {
		return fmt.Errorf("starting purge scheduler: %w", err)
	}
	defer purger.Stop()

	apiSrv := newAPIServer(thread.NewService(store, logger), sessionResolver(cfg), metrics.New(), logger)
	if err := apiSrv.Start(cfg.APIAddr); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := apiSrv.Stop(stopCtx); err != nil {
		logger.Error("api server stop error", "error", err)
	}

	return nil
}

func migrate() error {
	cfg, err := configLoad()
	if err != nil {
		return err
	}

	store, err := newSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}

	fmt.Fprintf(stdout, "Database ready at %s\n", cfg.DBPath)
	return nil
}

func purge() error {
	cfg, err := configLoad()
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)

	store, err := newSQLiteStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()

	res, err := retention.NewPurger(store, cfg.Retention, logger).RunOnce(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Purged %d posts and %d threads\n", res.Posts, res.Threads)
	return nil
}
