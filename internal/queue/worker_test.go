package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimo/patrimo-backend/internal/adapter/repository/memory"
	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
)

func newWorker(store *memory.Store, runner Runner) *Worker {
	return NewWorker(store.Jobs(), runner, common.NewSilentLogger(), 10*time.Millisecond, time.Minute)
}

func enqueue(t *testing.T, store *memory.Store, maxAttempts int) *domain.Job {
	t.Helper()
	job := NewJob(domain.JobKindNetWorth, uuid.New(), domain.NewDay(2024, time.May, 1), maxAttempts)
	require.NoError(t, store.Jobs().Enqueue(context.Background(), job))
	return job
}

func statusOf(t *testing.T, store *memory.Store, status domain.JobStatus) []*domain.Job {
	t.Helper()
	jobs, err := store.Jobs().ListByStatus(context.Background(), status)
	require.NoError(t, err)
	return jobs
}

func TestWorker_SuccessfulJobMarkedDone(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	var ran []uuid.UUID
	w := newWorker(store, RunnerFunc(func(_ context.Context, job *domain.Job) error {
		ran = append(ran, job.ID)
		return nil
	}))

	job := enqueue(t, store, 3)
	w.drain(ctx)

	assert.Equal(t, []uuid.UUID{job.ID}, ran)
	done := statusOf(t, store, domain.JobStatusDone)
	require.Len(t, done, 1)
	assert.Equal(t, 1, done[0].Attempts)
	assert.Empty(t, done[0].Error)
}

func TestWorker_FailedJobRescheduledWithBackoff(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w := newWorker(store, RunnerFunc(func(context.Context, *domain.Job) error {
		return errors.New("transient storage error")
	}))

	enqueue(t, store, 3)
	before := time.Now()
	w.drain(ctx)

	pending := statusOf(t, store, domain.JobStatusPending)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].Error, "transient storage error")
	assert.True(t, pending[0].RunAfter.After(before.Add(30*time.Second)),
		"first retry waits at least the base backoff")
}

func TestWorker_BackoffDoubles(t *testing.T) {
	assert.Equal(t, time.Minute, backoff(time.Minute, 1))
	assert.Equal(t, 2*time.Minute, backoff(time.Minute, 2))
	assert.Equal(t, 4*time.Minute, backoff(time.Minute, 3))
	assert.Equal(t, 8*time.Minute, backoff(time.Minute, 4))
}

func TestWorker_ExhaustedJobDeadLettered(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w := newWorker(store, RunnerFunc(func(context.Context, *domain.Job) error {
		return errors.New("permanent failure")
	}))

	job := enqueue(t, store, 1)
	w.drain(ctx)

	dead := statusOf(t, store, domain.JobStatusDead)
	require.Len(t, dead, 1)
	assert.Equal(t, job.ID, dead[0].ID)
	assert.Contains(t, dead[0].Error, "permanent failure")
	assert.Empty(t, statusOf(t, store, domain.JobStatusPending))
}

func TestWorker_DrainRunsAllDueJobs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	count := 0
	w := newWorker(store, RunnerFunc(func(context.Context, *domain.Job) error {
		count++
		return nil
	}))

	enqueue(t, store, 3)
	enqueue(t, store, 3)
	enqueue(t, store, 3)
	w.drain(ctx)

	assert.Equal(t, 3, count)
	assert.Len(t, statusOf(t, store, domain.JobStatusDone), 3)
}

func TestWorker_FutureJobNotClaimed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	w := newWorker(store, RunnerFunc(func(context.Context, *domain.Job) error {
		t.Fatal("job with a future run_after must not run")
		return nil
	}))

	job := NewJob(domain.JobKindNetWorth, uuid.New(), domain.NewDay(2024, time.May, 1), 3)
	job.RunAfter = time.Now().Add(time.Hour)
	require.NoError(t, store.Jobs().Enqueue(ctx, job))

	w.drain(ctx)
	assert.Len(t, statusOf(t, store, domain.JobStatusPending), 1)
}

func TestWorker_StartStopsOnContextCancel(t *testing.T) {
	store := memory.NewStore()
	w := newWorker(store, RunnerFunc(func(context.Context, *domain.Job) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}
