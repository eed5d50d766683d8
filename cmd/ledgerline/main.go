// Command ledgerline runs the bookkeeping engine's HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerline/ledgerline/internal/api"
	"github.com/ledgerline/ledgerline/internal/app"
	"github.com/ledgerline/ledgerline/internal/ledger/accounts"
	"github.com/ledgerline/ledgerline/internal/ledger/gl"
	"github.com/ledgerline/ledgerline/internal/ledger/journals"
	"github.com/ledgerline/ledgerline/internal/ledger/mappings"
	"github.com/ledgerline/ledgerline/internal/ledger/periods"
	"github.com/ledgerline/ledgerline/internal/ledger/reports"
	"github.com/ledgerline/ledgerline/internal/observability"
	"github.com/ledgerline/ledgerline/internal/platform/cache"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/recon"
	"github.com/ledgerline/ledgerline/internal/shared"
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

	audit := shared.NewAuditLogger(pool)
	metrics := observability.New()

	glRepo := gl.NewRepository(pool)
	glSvc := gl.NewService(glRepo)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL, logger)
	reportsSvc := reports.NewService(glRepo, reportCache)

	accountsSvc := accounts.NewService(accounts.NewRepository(pool), glRepo, audit)
	journalsRepo := journals.NewRepository(pool)
	journalsSvc := journals.NewService(journalsRepo, audit, reportCache)
	periodsSvc := periods.NewService(periods.NewRepository(pool), audit)
	mappingsSvc := mappings.NewService(mappings.NewRepository(pool), journalsSvc, audit)
	reconSvc := recon.NewService(recon.NewRepository(pool), journalsRepo, audit)

	handler := api.New(accountsSvc, journalsSvc, journalsRepo, periodsSvc, glSvc, reportsSvc, mappingsSvc, reconSvc, logger)
	router := app.NewRouter(cfg, handler, metrics, logger)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown incomplete", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
