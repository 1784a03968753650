// Package allocator distributes a pooled asset value across priority-ordered
// budget envelopes.
package allocator

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Allocation is the computed funding state of one envelope against the pool.
// Never stored: recomputed fresh on each read.
type Allocation struct {
	Envelope  domain.Envelope
	Funded    decimal.Decimal
	IsFull    bool
	Shortfall decimal.Decimal // zero when IsFull
}

// Allocate folds the pool over the envelopes in priority order (lower number
// first) and returns one allocation per envelope, in that order.
//
// Logic, per envelope:
//  1. funded = min(target, remaining)
//  2. isFull = funded == target
//  3. shortfall = target - funded (zero when full)
//  4. remaining -= funded
//
// Invariants: the sum of funded never exceeds the pool, and no envelope is
// ever funded beyond its target. A negative pool allocates as zero.
func Allocate(pool decimal.Decimal, envelopes []domain.Envelope) []Allocation {
	// Sort a copy; priorities are unique per user so the order is total.
	// ID is a deterministic fallback for malformed duplicate priorities.
	sorted := make([]domain.Envelope, len(envelopes))
	copy(sorted, envelopes)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority < sorted[j].Priority
		}
		return sorted[i].ID.String() < sorted[j].ID.String()
	})

	remaining := pool
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	allocations := make([]Allocation, 0, len(sorted))
	for _, e := range sorted {
		funded := decimal.Min(e.Target, remaining)
		isFull := funded.Equal(e.Target)
		shortfall := decimal.Zero
		if !isFull {
			shortfall = e.Target.Sub(funded)
		}
		remaining = remaining.Sub(funded)

		allocations = append(allocations, Allocation{
			Envelope:  e,
			Funded:    funded,
			IsFull:    isFull,
			Shortfall: shortfall,
		})
	}

	return allocations
}
