// Package recompute drives the carry-forward join over an affected date range
// and overwrites the derived snapshots transactionally.
package recompute

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrimo/patrimo-backend/internal/domain"
	"github.com/patrimo/patrimo-backend/internal/usecase/aggregation"
	"github.com/patrimo/patrimo-backend/internal/usecase/valuation"
)

// Scheduler rebuilds derived snapshots for a user from a start day (or month)
// up to today. Invocations are idempotent: the same fact set always produces
// the same rows, and each invocation commits as a single atomic unit through
// the snapshot store. Overlapping invocations are therefore safe to repeat
// under at-least-once delivery.
type Scheduler struct {
	Holdings     domain.HoldingRepository
	Transactions domain.TransactionRepository
	Snapshots    domain.SnapshotStore
	Resolver     *valuation.Resolver

	// Now is the clock used for the upper bound of every range.
	// Defaults to domain.Today; tests pin it.
	Now func() domain.Day
}

// NewScheduler creates a new Scheduler instance.
func NewScheduler(holdings domain.HoldingRepository, transactions domain.TransactionRepository, snapshots domain.SnapshotStore, resolver *valuation.Resolver) *Scheduler {
	return &Scheduler{
		Holdings:     holdings,
		Transactions: transactions,
		Snapshots:    snapshots,
		Resolver:     resolver,
		Now:          domain.Today,
	}
}

// RecomputeNetWorth rebuilds the valuation rows of every holding of the user
// and the user's net-worth rows for each day in [start, today].
//
// The whole range is assembled in memory first and committed through a single
// ReplaceRange call, so a failure partway writes nothing.
func (s *Scheduler) RecomputeNetWorth(ctx context.Context, userID uuid.UUID, start domain.Day) error {
	today := s.Now()
	if start.After(today) {
		return nil
	}

	holdings, err := s.Holdings.ListByUser(ctx, userID)
	if err != nil {
		return s.failure(userID, start, fmt.Errorf("failed to list holdings: %w", err))
	}

	holdingIDs := make([]uuid.UUID, 0, len(holdings))
	for _, h := range holdings {
		holdingIDs = append(holdingIDs, h.ID)
	}

	var valuations []*domain.ValuationSnapshot
	var worths []*domain.NetWorthSnapshot

	for day := start; !day.After(today); day = day.Next() {
		dayRows := make([]*domain.ValuationSnapshot, 0, len(holdings))
		for _, h := range holdings {
			snap, ok, err := s.Resolver.Resolve(ctx, h, day)
			if err != nil {
				return s.failure(userID, start, err)
			}
			if !ok {
				// No quantity history at or before this day:
				// the holding is absent, not zero.
				continue
			}
			dayRows = append(dayRows, snap)
		}
		valuations = append(valuations, dayRows...)
		worths = append(worths, aggregation.NetWorthForDay(userID, day, holdings, dayRows))
	}

	if err := s.Snapshots.ReplaceRange(ctx, userID, holdingIDs, start, today, valuations, worths); err != nil {
		return s.failure(userID, start, fmt.Errorf("failed to replace snapshot range: %w", err))
	}

	return nil
}

// RecomputeNetWorthForHolding resolves the owner of the holding and rebuilds
// that user's snapshots. Net worth sums every holding of the user per day, so
// the rebuild scope is always the whole user.
func (s *Scheduler) RecomputeNetWorthForHolding(ctx context.Context, holdingID uuid.UUID, start domain.Day) error {
	h, err := s.Holdings.GetByID(ctx, holdingID)
	if err != nil {
		return fmt.Errorf("failed to load holding %s: %w", holdingID, err)
	}
	return s.RecomputeNetWorth(ctx, h.UserID, start)
}

// RecomputeCashFlow rebuilds the user's monthly cash-flow rows for every
// month in [month of start, current month], committed atomically.
func (s *Scheduler) RecomputeCashFlow(ctx context.Context, userID uuid.UUID, start domain.Day) error {
	from := domain.MonthOf(start)
	to := domain.MonthOf(s.Now())
	if from.After(to) {
		return nil
	}

	var rows []*domain.CashFlowSnapshot
	for m := from; !m.After(to); m = m.Next() {
		transactions, err := s.Transactions.ListByUserInMonth(ctx, userID, m)
		if err != nil {
			return s.failure(userID, start, fmt.Errorf("failed to list transactions for %s: %w", m, err))
		}
		rows = append(rows, aggregation.CashFlowForMonth(userID, m, transactions))
	}

	if err := s.Snapshots.ReplaceCashFlowRange(ctx, userID, from, to, rows); err != nil {
		return s.failure(userID, start, fmt.Errorf("failed to replace cash flow range: %w", err))
	}

	return nil
}

func (s *Scheduler) failure(userID uuid.UUID, start domain.Day, err error) error {
	return &domain.RecomputeError{UserID: userID.String(), Start: start, Err: err}
}
