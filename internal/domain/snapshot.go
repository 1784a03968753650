package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValuationSnapshot is the derived value of one holding on one day, in the
// target currency. Rows are wholly owned and overwritten by the recompute
// scheduler; they are disposable and always rebuildable from facts.
//
// The carried flags record, independently per dimension, whether the resolved
// value came from a fact strictly earlier than Day.
type ValuationSnapshot struct {
	HoldingID uuid.UUID
	Day       Day
	Quantity  decimal.Decimal
	Price     decimal.Decimal // 1 for non-stock holdings
	Rate      decimal.Decimal // 1 when the holding is already in the target currency
	Value     decimal.Decimal // Quantity * Price * Rate

	QuantityCarried bool
	PriceCarried    bool
	RateCarried     bool
}

// NetWorthSnapshot is the derived per-user net worth for one day, summed from
// that user's valuation snapshots.
type NetWorthSnapshot struct {
	UserID      uuid.UUID
	Day         Day
	TotalAssets decimal.Decimal
	TotalDebts  decimal.Decimal
	NetValue    decimal.Decimal
}

// CheckConsistency verifies the netValue identity. A violation means a
// recompute failed or interleaved, not that the inputs are wrong.
func (s *NetWorthSnapshot) CheckConsistency() error {
	if !s.NetValue.Equal(s.TotalAssets.Sub(s.TotalDebts)) {
		return ErrInconsistentSnapshot
	}
	return nil
}

// CashFlowSnapshot is the derived per-user cash flow for one month, summed
// from that user's transactions.
type CashFlowSnapshot struct {
	UserID   uuid.UUID
	Month    Month
	Income   decimal.Decimal
	Expenses decimal.Decimal
	NetFlow  decimal.Decimal // Income - Expenses
}
