package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// jobStore implements domain.JobStore. ClaimNext uses FOR UPDATE SKIP LOCKED
// so concurrent workers never claim the same job.
type jobStore struct {
	db *DB
}

// NewJobStore creates a new job store
func NewJobStore(db *DB) domain.JobStore {
	return &jobStore{db: db}
}

// Enqueue persists a new pending job
func (r *jobStore) Enqueue(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO recompute_jobs
			(id, kind, user_id, start_day, status, attempts, max_attempts,
			 run_after, created_at, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		job.ID, string(job.Kind), job.UserID, job.Start.Time(),
		string(job.Status), job.Attempts, job.MaxAttempts,
		job.RunAfter, job.CreatedAt, job.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// ClaimNext atomically claims the oldest due pending job
func (r *jobStore) ClaimNext(ctx context.Context) (*domain.Job, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, kind, user_id, start_day, status, attempts, max_attempts,
			run_after, created_at, error
		FROM recompute_jobs
		WHERE status = $1 AND run_after <= $2
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`

	job, err := scanJob(tx.QueryRowContext(ctx, query, string(domain.JobStatusPending), time.Now().UTC()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = domain.JobStatusRunning
	job.Attempts++

	_, err = tx.ExecContext(ctx,
		`UPDATE recompute_jobs SET status = $2, attempts = $3 WHERE id = $1`,
		job.ID, string(job.Status), job.Attempts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark job running: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}
	return job, nil
}

// Update overwrites a claimed job's status, error and scheduling fields
func (r *jobStore) Update(ctx context.Context, job *domain.Job) error {
	query := `
		UPDATE recompute_jobs
		SET status = $2, attempts = $3, run_after = $4, error = $5
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		job.ID, string(job.Status), job.Attempts, job.RunAfter, job.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return requireRow(res)
}

// ListByStatus retrieves jobs in the given status, oldest first
func (r *jobStore) ListByStatus(ctx context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	query := `
		SELECT id, kind, user_id, start_day, status, attempts, max_attempts,
			run_after, created_at, error
		FROM recompute_jobs
		WHERE status = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row scanner) (*domain.Job, error) {
	var job domain.Job
	var kind, status string
	var start sql.NullTime

	err := row.Scan(
		&job.ID, &kind, &job.UserID, &start, &status,
		&job.Attempts, &job.MaxAttempts,
		&job.RunAfter, &job.CreatedAt, &job.Error,
	)
	if err != nil {
		return nil, err
	}

	job.Kind = domain.JobKind(kind)
	job.Status = domain.JobStatus(status)
	job.Start = domain.DayOf(start.Time)

	return &job, nil
}
