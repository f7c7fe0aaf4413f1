package cron

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bher20/billoptimizer/internal/alerting"
	"github.com/bher20/billoptimizer/internal/metrics"
	"github.com/bher20/billoptimizer/internal/storage"
)

// CleanupJobName is the scheduled_jobs row of the cleanup job.
const CleanupJobName = "cleanup_expired"

// Task is one step of a job. It returns the number of rows it touched.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int64, error)
}

// Job is a named list of tasks. A failing task does not stop the others.
type Job struct {
	Name  string
	Tasks []Task
}

// CleanupJob deletes expired sessions and used or expired reset tokens.
func CleanupJob(st storage.Storage, now func() time.Time) Job {
	return Job{
		Name: CleanupJobName,
		Tasks: []Task{
			{Name: "sessions", Run: func(ctx context.Context) (int64, error) {
				return st.DeleteExpiredSessions(ctx, now())
			}},
			{Name: "reset_tokens", Run: func(ctx context.Context) (int64, error) {
				return st.DeleteStaleResetTokens(ctx, now())
			}},
		},
	}
}

// poolStats is implemented by storage backends with a connection pool.
type poolStats interface {
	Driver() string
	DBStats() (sql.DBStats, error)
}

// Worker runs jobs, records their outcome and alerts on failure.
type Worker struct {
	store   storage.Storage
	alerter *alerting.Alerter
	log     *zap.Logger
}

func NewWorker(st storage.Storage, alerter *alerting.Alerter, log *zap.Logger) *Worker {
	return &Worker{store: st, alerter: alerter, log: log.Named("cron")}
}

// RunJob executes every task of job once. The returned error joins the
// task failures.
func (w *Worker) RunJob(ctx context.Context, job Job) error {
	started := time.Now()

	var (
		errs     []error
		failures []alerting.TaskFailure
	)
	for _, t := range job.Tasks {
		n, err := t.Run(ctx)
		if err != nil {
			w.log.Error("cron: task failed", zap.String("job", job.Name), zap.String("task", t.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
			failures = append(failures, alerting.TaskFailure{Task: t.Name, Error: err.Error()})
			continue
		}
		w.log.Debug("cron: task done", zap.String("job", job.Name), zap.String("task", t.Name), zap.Int64("rows", n))
	}
	runErr := errors.Join(errs...)

	// Record metrics & job row.
	metrics.UpdateJobMetrics(job.Name, started, runErr)
	if ps, ok := w.store.(poolStats); ok {
		if st, err := ps.DBStats(); err == nil {
			metrics.UpdateDBPoolMetrics(ps.Driver(), st)
		}
	}
	dur := time.Since(started)
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := w.store.UpdateScheduledJob(ctx, job.Name, started, dur, runErr == nil, errMsg); err != nil {
		w.log.Warn("cron: update scheduled_jobs failed", zap.Error(err))
	}

	if runErr == nil {
		w.log.Info("cron: job completed successfully", zap.String("job", job.Name), zap.Duration("duration", dur))
		if w.alerter != nil {
			w.alerter.JobSucceeded(job.Name)
		}
		return nil
	}

	w.log.Error("cron: job completed with error", zap.String("job", job.Name), zap.Duration("duration", dur), zap.Error(runErr))
	if w.alerter != nil {
		alert := alerting.JobAlert{
			JobName:    job.Name,
			TotalTasks: len(job.Tasks),
			Failures:   failures,
			Duration:   dur,
			Timestamp:  started,
		}
		if err := w.alerter.JobFailed(ctx, alert); err != nil {
			w.log.Warn("cron: send alert failed", zap.Error(err))
		}
	}
	return runErr
}

// Run schedules job with a standard cron expression or descriptor such as
// "@hourly" and blocks until ctx is cancelled. Overlapping runs are skipped.
func (w *Worker) Run(ctx context.Context, schedule string, job Job) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, func() {
		_ = w.RunJob(ctx, job)
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	w.log.Info("cron: worker starting", zap.String("job", job.Name), zap.String("schedule", schedule))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	w.log.Info("cron: worker stopped", zap.String("job", job.Name))
	return ctx.Err()
}
