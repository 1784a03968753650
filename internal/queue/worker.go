// Package queue runs durable recompute jobs with at-least-once delivery,
// exponential backoff and a dead-letter state, so a failed rebuild is
// observable and retried instead of silently dropped.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Runner executes one claimed job.
type Runner interface {
	Run(ctx context.Context, job *domain.Job) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, job *domain.Job) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, job *domain.Job) error { return f(ctx, job) }

// Worker polls the job store and runs due jobs. Several workers may share one
// store: ClaimNext is the only claim path and is atomic, so a job is never
// run twice concurrently.
type Worker struct {
	Jobs        domain.JobStore
	Runner      Runner
	Logger      *common.Logger
	PollEvery   time.Duration
	BaseBackoff time.Duration
}

// NewWorker creates a new Worker instance.
func NewWorker(jobs domain.JobStore, runner Runner, logger *common.Logger, pollEvery, baseBackoff time.Duration) *Worker {
	return &Worker{
		Jobs:        jobs,
		Runner:      runner,
		Logger:      logger,
		PollEvery:   pollEvery,
		BaseBackoff: baseBackoff,
	}
}

// Start runs the polling loop until the context is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Logger.Info().Msg("Recompute worker: stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain claims and runs jobs until the store has nothing due.
func (w *Worker) drain(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.Jobs.ClaimNext(ctx)
		if err != nil {
			w.Logger.Error().Err(err).Msg("Recompute worker: claim failed")
			return
		}
		if job == nil {
			return
		}

		w.runOne(ctx, job)
	}
}

// runOne executes a claimed job and settles its outcome: done on success,
// rescheduled with exponential backoff on failure, dead-lettered once the
// attempt budget is spent.
func (w *Worker) runOne(ctx context.Context, job *domain.Job) {
	start := time.Now()
	runErr := w.Runner.Run(ctx, job)

	if runErr == nil {
		job.Status = domain.JobStatusDone
		job.Error = ""
		if err := w.Jobs.Update(ctx, job); err != nil {
			w.Logger.Error().Err(err).Str("job", job.ID.String()).Msg("Recompute worker: failed to mark job done")
		}
		w.Logger.Info().
			Str("job", job.ID.String()).
			Str("kind", string(job.Kind)).
			Str("user", job.UserID.String()).
			Str("start", job.Start.String()).
			Dur("elapsed", time.Since(start)).
			Msg("Recompute worker: job complete")
		return
	}

	job.Error = runErr.Error()

	if job.Attempts >= job.MaxAttempts {
		job.Status = domain.JobStatusDead
		if err := w.Jobs.Update(ctx, job); err != nil {
			w.Logger.Error().Err(err).Str("job", job.ID.String()).Msg("Recompute worker: failed to dead-letter job")
		}
		w.Logger.Error().
			Err(runErr).
			Str("job", job.ID.String()).
			Str("kind", string(job.Kind)).
			Int("attempts", job.Attempts).
			Msg("Recompute worker: job dead-lettered")
		return
	}

	job.Status = domain.JobStatusPending
	job.RunAfter = time.Now().Add(backoff(w.BaseBackoff, job.Attempts))
	if err := w.Jobs.Update(ctx, job); err != nil {
		w.Logger.Error().Err(err).Str("job", job.ID.String()).Msg("Recompute worker: failed to reschedule job")
		return
	}
	w.Logger.Warn().
		Err(runErr).
		Str("job", job.ID.String()).
		Int("attempt", job.Attempts).
		Time("run_after", job.RunAfter).
		Msg("Recompute worker: job failed, rescheduled")
}

// backoff doubles the base delay per prior attempt: base, 2*base, 4*base...
func backoff(base time.Duration, attempts int) time.Duration {
	d := base
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}

// NewJob builds a pending job with defaults applied.
func NewJob(kind domain.JobKind, userID uuid.UUID, start domain.Day, maxAttempts int) *domain.Job {
	return &domain.Job{
		ID:          uuid.New(),
		Kind:        kind,
		UserID:      userID,
		Start:       start,
		Status:      domain.JobStatusPending,
		MaxAttempts: maxAttempts,
		RunAfter:    time.Now(),
		CreatedAt:   time.Now(),
	}
}
