package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/ledgerline/ledgerline/internal/ledger/reports"
	"github.com/ledgerline/ledgerline/internal/observability"
)

// TenantLister enumerates tenants for sweep tasks.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]uuid.UUID, error)
}

// Worker consumes background tasks.
type Worker struct {
	server  *asynq.Server
	client  *asynq.Client
	reports *reports.Service
	tenants TenantLister
	metrics *observability.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewWorker constructs the task consumer.
func NewWorker(redisAddr string, reportsSvc *reports.Service, tenants TenantLister, metrics *observability.Metrics, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	return &Worker{
		server: asynq.NewServer(redisOpt, asynq.Config{
			Concurrency: 4,
			Queues:      map[string]int{"default": 1},
		}),
		client:  asynq.NewClient(redisOpt),
		reports: reportsSvc,
		tenants: tenants,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Run blocks consuming tasks until Shutdown.
func (w *Worker) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeIntegritySweep, w.handleIntegritySweep)
	mux.HandleFunc(TypeWarmupSweep, w.handleWarmupSweep)
	mux.HandleFunc(TypeIntegrityCheck, w.handleIntegrityCheck)
	mux.HandleFunc(TypeReportWarmup, w.handleReportWarmup)
	return w.server.Run(mux)
}

// Shutdown stops the consumer and closes the fan-out client.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
	_ = w.client.Close()
}

func (w *Worker) handleIntegritySweep(ctx context.Context, _ *asynq.Task) error {
	return w.fanOut(ctx, NewIntegrityCheckTask)
}

func (w *Worker) handleWarmupSweep(ctx context.Context, _ *asynq.Task) error {
	return w.fanOut(ctx, NewReportWarmupTask)
}

func (w *Worker) fanOut(ctx context.Context, build func(uuid.UUID) (*asynq.Task, error)) error {
	tenants, err := w.tenants.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("jobs: listing tenants: %w", err)
	}
	for _, tenantID := range tenants {
		task, err := build(tenantID)
		if err != nil {
			return err
		}
		if _, err := w.client.EnqueueContext(ctx, task); err != nil {
			return fmt.Errorf("jobs: enqueue for tenant %s: %w", tenantID, err)
		}
	}
	return nil
}

func decodeTenant(task *asynq.Task) (uuid.UUID, error) {
	var payload TenantPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return uuid.Nil, fmt.Errorf("jobs: bad payload: %w", err)
	}
	if payload.TenantID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("jobs: payload without tenant")
	}
	return payload.TenantID, nil
}

// handleIntegrityCheck recomputes the trial balance and fails loudly if the
// books no longer balance. This should never fire; when it does, something
// wrote to the ledger without going through the posting engine.
func (w *Worker) handleIntegrityCheck(ctx context.Context, task *asynq.Task) error {
	tenantID, err := decodeTenant(task)
	if err != nil {
		return err
	}
	tb, err := w.reports.TrialBalance(ctx, tenantID, w.now().UTC(), false)
	if err != nil {
		return fmt.Errorf("jobs: trial balance for %s: %w", tenantID, err)
	}
	if !tb.IsBalanced() {
		if w.metrics != nil {
			w.metrics.IntegrityFailure.Inc()
		}
		w.logger.Error("trial balance out of balance",
			"tenant", tenantID,
			"total_debit", int64(tb.TotalDebit),
			"total_credit", int64(tb.TotalCredit),
		)
		return fmt.Errorf("jobs: tenant %s out of balance: debit %s credit %s", tenantID, tb.TotalDebit, tb.TotalCredit)
	}
	w.logger.Info("integrity check passed", "tenant", tenantID, "total", int64(tb.TotalDebit))
	return nil
}

func (w *Worker) handleReportWarmup(ctx context.Context, task *asynq.Task) error {
	tenantID, err := decodeTenant(task)
	if err != nil {
		return err
	}
	asOf := w.now().UTC()
	yearStart := time.Date(asOf.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := w.reports.TrialBalance(ctx, tenantID, asOf, false); err != nil {
		return err
	}
	if _, err := w.reports.BalanceSheet(ctx, tenantID, asOf); err != nil {
		return err
	}
	if _, err := w.reports.IncomeStatement(ctx, tenantID, yearStart, asOf); err != nil {
		return err
	}
	w.logger.Info("report cache warmed", "tenant", tenantID)
	return nil
}

// NewScheduler registers the nightly sweeps.
func NewScheduler(redisAddr string, logger *slog.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(asynq.RedisClientOpt{Addr: redisAddr}, &asynq.SchedulerOpts{})
	if _, err := scheduler.Register("0 2 * * *", asynq.NewTask(TypeIntegritySweep, nil)); err != nil {
		return nil, err
	}
	if _, err := scheduler.Register("0 6 * * *", asynq.NewTask(TypeWarmupSweep, nil)); err != nil {
		return nil, err
	}
	logger.Info("scheduler registered", "sweeps", 2)
	return scheduler, nil
}
