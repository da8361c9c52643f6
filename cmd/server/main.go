// Command server runs the invoice conversion web UI.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/quangtd/invoice2sap/internal/domain/archive"
	"github.com/quangtd/invoice2sap/internal/domain/convert"
	"github.com/quangtd/invoice2sap/internal/logging"
	"github.com/quangtd/invoice2sap/internal/metrics"
	"github.com/quangtd/invoice2sap/internal/notify"
	"github.com/quangtd/invoice2sap/internal/web"
	"github.com/quangtd/invoice2sap/pkg/config"
	"github.com/quangtd/invoice2sap/pkg/cron"
	"github.com/quangtd/invoice2sap/pkg/storage"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		return err
	}

	search, err := archive.NewSearchIndex(cfg.Storage.IndexDir)
	if err != nil {
		return err
	}
	defer search.Close()

	// The archive is optional: without Postgres the converter still
	// works, only history pages and retention are disabled.
	repo, pool := openArchive(ctx, cfg, logger)
	if pool != nil {
		defer pool.Close()
	}

	svc := convert.NewService(store, logger)
	if repo != nil {
		svc = svc.WithArchive(repo, search)
	}

	notifier := notify.New(cfg.Notify, logger)

	var scheduler *cron.Scheduler
	if repo != nil {
		scheduler = cron.NewScheduler(repo, search, store,
			cfg.Storage.RetentionDays, cfg.Storage.CleanupSchedule, logger)
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	if cfg.Observability.MetricsEnabled {
		go func() {
			if err := metrics.Serve(cfg.Observability.MetricsPort); err != nil {
				logger.Error("metrics server exited", slog.Any("error", err))
			}
		}()
	}

	var batches web.BatchReader
	if repo != nil {
		batches = repo
	}
	server := web.NewServer(cfg, svc, batches, search, store, notifier, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openArchive connects to Postgres and runs migrations. A connection
// failure disables the archive instead of stopping the server.
func openArchive(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*archive.Repository, *pgxpool.Pool) {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Warn("archive disabled: invalid database config", slog.Any("error", err))
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("archive disabled: database unreachable", slog.Any("error", err))
		pool.Close()
		return nil, nil
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := archive.Migrate(db); err != nil {
		logger.Error("archive disabled: migrations failed", slog.Any("error", err))
		pool.Close()
		return nil, nil
	}

	return archive.NewRepository(pool), pool
}
