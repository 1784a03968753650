// Package valuation implements the carry-forward join over the three sparse
// fact streams (quantity, price, rate).
package valuation

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Resolver computes the resolved valuation of a holding on a day by joining
// the latest at-or-before fact of each dimension independently. It is pure
// with respect to the snapshot store: it only reads facts.
type Resolver struct {
	Facts          domain.FactStore
	TargetCurrency string
}

// NewResolver creates a new Resolver instance.
func NewResolver(facts domain.FactStore, targetCurrency string) *Resolver {
	return &Resolver{
		Facts:          facts,
		TargetCurrency: targetCurrency,
	}
}

// Resolve computes the valuation snapshot of a holding on a day.
//
// Logic, per dimension:
//   - Quantity: latest quantity fact at-or-before day. No fact at all means the
//     holding is absent from that day's aggregate: ok=false, not zero.
//   - Price: only for stock holdings; latest price fact at-or-before day.
//     Non-stock holdings have no price dimension: price=1, never carried.
//     A stock with no price fact yet also resolves to 1, carried.
//   - Rate: only when the holding currency differs from the target currency;
//     latest rate fact at-or-before day. Same currency: rate=1, not carried.
//     No rate fact yet: 1, carried.
//
// A dimension is carried when its resolved fact is strictly earlier than day.
// Value = Quantity * Price * Rate, all decimal.
func (r *Resolver) Resolve(ctx context.Context, h *domain.Holding, day domain.Day) (*domain.ValuationSnapshot, bool, error) {
	qf, err := r.Facts.QuantityAtOrBefore(ctx, h.ID, day)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to resolve quantity for holding %s: %w", h.ID, err)
	}

	snap := &domain.ValuationSnapshot{
		HoldingID:       h.ID,
		Day:             day,
		Quantity:        qf.Quantity,
		Price:           decimal.NewFromInt(1),
		Rate:            decimal.NewFromInt(1),
		QuantityCarried: qf.Day.Before(day),
	}

	if h.IsStock() {
		pf, err := r.Facts.PriceAtOrBefore(ctx, *h.TickerID, day)
		switch {
		case err == nil:
			snap.Price = pf.Price
			snap.PriceCarried = pf.Day.Before(day)
		case errors.Is(err, domain.ErrNotFound):
			// No price history yet: the resolved price is inherited
			// from nothing observable, so it counts as carried.
			snap.PriceCarried = true
		default:
			return nil, false, fmt.Errorf("failed to resolve price for holding %s: %w", h.ID, err)
		}
	}

	if h.Currency != r.TargetCurrency {
		rf, err := r.Facts.RateAtOrBefore(ctx, h.Currency, r.TargetCurrency, day)
		switch {
		case err == nil:
			snap.Rate = rf.Rate
			snap.RateCarried = rf.Day.Before(day)
		case errors.Is(err, domain.ErrNotFound):
			snap.RateCarried = true
		default:
			return nil, false, fmt.Errorf("failed to resolve rate for holding %s: %w", h.ID, err)
		}
	}

	snap.Value = snap.Quantity.Mul(snap.Price).Mul(snap.Rate)

	return snap, true, nil
}
