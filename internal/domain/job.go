package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobKind identifies the recompute a job carries.
type JobKind string

const (
	JobKindNetWorth JobKind = "NET_WORTH"
	JobKindCashFlow JobKind = "CASH_FLOW"
)

// JobStatus is the lifecycle state of a queued recompute.
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusDone    JobStatus = "DONE"
	JobStatusDead    JobStatus = "DEAD"
)

// Job is one durable recompute task. Fact mutations enqueue jobs instead of
// running the rebuild inline, so a failed rebuild is retried with backoff and
// eventually dead-lettered rather than silently dropped.
type Job struct {
	ID          uuid.UUID
	Kind        JobKind
	UserID      uuid.UUID
	Start       Day // first affected day; for cash flow, first day of the affected month
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	Error       string
}
