// Package invalidation computes the minimal date range that must be rebuilt
// after a fact mutation.
package invalidation

import (
	"context"
	"errors"
	"fmt"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Resolver maps a fact mutation to the first day from which downstream
// snapshots must be rebuilt. The end of the range is always "today":
// carry-forward makes every later day a function of the state at and after
// the start day, so no earlier upper bound is safe.
type Resolver struct {
	Facts    domain.FactStore
	Holdings domain.HoldingRepository
}

// NewResolver creates a new Resolver instance.
func NewResolver(facts domain.FactStore, holdings domain.HoldingRepository) *Resolver {
	return &Resolver{
		Facts:    facts,
		Holdings: holdings,
	}
}

// StartFor computes the start day for a mutation.
//
// Logic:
//   - Quantity change: the fact's own day. Deletion too — the gap it leaves is
//     refilled by the next earlier fact's carried value from that day on.
//   - Price or rate change: one price/rate is shared by many holdings, so the
//     start is min(fact day, earliest quantity day of every dependent holding).
//     A rate introduced late may need back-filling for a holding whose quantity
//     history started earlier; the conservative lower bound keeps this correct
//     at the cost of recomputing more than strictly necessary.
//   - Transaction change: the first day of the transaction's month, since cash
//     flow is aggregated monthly.
func (r *Resolver) StartFor(ctx context.Context, m domain.FactMutation) (domain.Day, error) {
	switch m.Kind {
	case domain.FactKindQuantity:
		return m.Quantity.Day, nil

	case domain.FactKindPrice:
		holdings, err := r.Holdings.ListByTicker(ctx, m.Price.TickerID)
		if err != nil {
			return domain.Day{}, fmt.Errorf("failed to list holdings for ticker %s: %w", m.Price.TickerID, err)
		}
		return r.lowerBound(ctx, m.Price.Day, holdings)

	case domain.FactKindRate:
		holdings, err := r.Holdings.ListByCurrency(ctx, m.Rate.Base)
		if err != nil {
			return domain.Day{}, fmt.Errorf("failed to list holdings for currency %s: %w", m.Rate.Base, err)
		}
		return r.lowerBound(ctx, m.Rate.Day, holdings)

	case domain.FactKindTransaction:
		return domain.MonthOf(m.Transaction.Day).FirstDay(), nil
	}

	return domain.Day{}, domain.NewValidationError("unknown fact kind: " + string(m.Kind))
}

// lowerBound returns the earlier of the mutated day and the earliest quantity
// day of any dependent holding. Holdings without quantity history are ignored.
func (r *Resolver) lowerBound(ctx context.Context, day domain.Day, holdings []*domain.Holding) (domain.Day, error) {
	start := day
	for _, h := range holdings {
		earliest, err := r.Facts.EarliestQuantity(ctx, h.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return domain.Day{}, fmt.Errorf("failed to find earliest quantity for holding %s: %w", h.ID, err)
		}
		start = start.Min(earliest.Day)
	}
	return start, nil
}
