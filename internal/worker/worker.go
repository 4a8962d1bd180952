// Package worker runs the periodic background sweep: recurring invoices that
// have come due are materialized, then due reminders are scheduled and sent.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/DodailSolutions/billbook/internal/telemetry"
)

// Job types, used as the job_type metric label.
const (
	JobTypeMaterializeRecurring = "materialize_recurring"
	JobTypeDispatchReminders    = "dispatch_reminders"
)

// RecurringSweeper is satisfied by *service.RecurringInvoiceService.
type RecurringSweeper interface {
	MaterializeDue(ctx context.Context, asOf time.Time, limit int32) (domain.MaterializeResult, error)
}

// ReminderSweeper is satisfied by *service.ReminderService.
type ReminderSweeper interface {
	DispatchDue(ctx context.Context, asOf time.Time, limit int32) (domain.DispatchResult, error)
}

// Config holds worker configuration
type Config struct {
	// WorkerID uniquely identifies this worker instance in logs
	WorkerID string

	// PollInterval is how often a sweep starts
	PollInterval time.Duration

	// BatchSize caps the items each step handles per sweep
	BatchSize int32

	// Now supplies the sweep's reference time. Defaults to time.Now.
	Now func() time.Time
}

// Result summarizes one sweep.
type Result struct {
	Recurring domain.MaterializeResult
	Reminders domain.DispatchResult
}

// Worker processes background sweeps
type Worker struct {
	config    Config
	recurring RecurringSweeper
	reminders ReminderSweeper
	logger    *slog.Logger

	// busy holds a token while a sweep runs; ticks that find it full are skipped.
	busy chan struct{}
	wg   sync.WaitGroup
}

// NewWorker creates a new background worker
func NewWorker(recurring RecurringSweeper, reminders ReminderSweeper, config Config, logger *slog.Logger) *Worker {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Worker{
		config:    config,
		recurring: recurring,
		reminders: reminders,
		logger:    logger,
		busy:      make(chan struct{}, 1),
	}
}

// Start sweeps once immediately and then on every tick until ctx is
// cancelled. It waits for an in-flight sweep before returning.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		"worker_id", w.config.WorkerID,
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize,
	)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	w.trySweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker shutting down", "worker_id", w.config.WorkerID)
			w.wg.Wait()
			return ctx.Err()

		case <-ticker.C:
			w.trySweep(ctx)
		}
	}
}

func (w *Worker) trySweep(ctx context.Context) {
	select {
	case w.busy <- struct{}{}:
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.busy }()
			w.RunOnce(ctx)
		}()
	default:
		w.logger.Debug("previous sweep still running, skipping tick", "worker_id", w.config.WorkerID)
	}
}

// RunOnce performs a single sweep. Recurring templates run first so that
// invoices they generate are visible to the reminder step.
func (w *Worker) RunOnce(ctx context.Context) Result {
	var result Result
	asOf := w.config.Now().UTC()

	w.runJob(ctx, JobTypeMaterializeRecurring, func(ctx context.Context) (int, int, error) {
		r, err := w.recurring.MaterializeDue(ctx, asOf, w.config.BatchSize)
		result.Recurring = r
		return r.Generated, r.Failed, err
	})

	w.runJob(ctx, JobTypeDispatchReminders, func(ctx context.Context) (int, int, error) {
		r, err := w.reminders.DispatchDue(ctx, asOf, w.config.BatchSize)
		result.Reminders = r
		return r.Sent, r.Failed, err
	})

	return result
}

// runJob executes one sweep step and records its outcome.
func (w *Worker) runJob(ctx context.Context, jobType string, fn func(context.Context) (int, int, error)) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	processed, failed, err := fn(ctx)

	if m := telemetry.Business; m != nil {
		m.JobDuration.WithLabelValues(jobType).Observe(time.Since(start).Seconds())
		m.JobsProcessed.WithLabelValues(jobType).Add(float64(processed))
		m.JobsFailed.WithLabelValues(jobType).Add(float64(failed))
	}
	telemetry.AddBreadcrumb("worker", jobType+" sweep step finished", map[string]interface{}{
		"worker_id": w.config.WorkerID,
		"processed": processed,
		"failed":    failed,
	})

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("sweep step failed",
			"worker_id", w.config.WorkerID,
			"job_type", jobType,
			"error", err,
		)
		if m := telemetry.Business; m != nil {
			m.JobsFailed.WithLabelValues(jobType).Inc()
		}
		telemetry.CaptureError(err, map[string]interface{}{"job_type": jobType})
		return
	}

	if processed > 0 || failed > 0 {
		w.logger.Info("sweep step completed",
			"job_type", jobType,
			"processed", processed,
			"failed", failed,
			"duration", time.Since(start),
		)
	}
}
