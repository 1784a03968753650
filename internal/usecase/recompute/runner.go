package recompute

import (
	"context"
	"fmt"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Run executes one claimed queue job by dispatching on its kind. Rebuilds are
// idempotent, so a job re-delivered after a crashed worker is harmless.
func (s *Scheduler) Run(ctx context.Context, job *domain.Job) error {
	switch job.Kind {
	case domain.JobKindNetWorth:
		return s.RecomputeNetWorth(ctx, job.UserID, job.Start)
	case domain.JobKindCashFlow:
		return s.RecomputeCashFlow(ctx, job.UserID, job.Start)
	}
	return fmt.Errorf("unknown job kind %q", job.Kind)
}
