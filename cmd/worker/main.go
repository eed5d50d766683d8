// Command worker consumes background tasks: nightly integrity checks and
// report cache warmup.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/ledger/gl"
	"github.com/ledgerline/ledgerline/internal/ledger/reports"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/jobs"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	glRepo := gl.NewRepository(pool)
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	reportsSvc := reports.NewService(glRepo, reportCache)
	metrics := observability.New()

	worker := jobs.NewWorker(cfg.RedisAddr, reportsSvc, jobs.NewPgTenantLister(pool), metrics, logger)
	scheduler, err := jobs.NewScheduler(cfg.RedisAddr, logger)
	if err != nil {
		logger.Error("scheduler init failed", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- worker.Run() }()
	go func() { errCh <- scheduler.Run() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			logger.Error("worker failed", "error", err)
		}
	}
	scheduler.Shutdown()
	worker.Shutdown()
	logger.Info("stopped")
}
