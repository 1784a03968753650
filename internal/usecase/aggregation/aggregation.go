// Package aggregation rolls per-holding valuations into per-user net worth
// and transactions into per-user monthly cash flow. All functions are pure.
package aggregation

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// NetWorthForDay sums a user's valuation rows for one day into a net-worth
// row. Holdings absent from valuations (no quantity history yet) simply do
// not contribute.
func NetWorthForDay(userID uuid.UUID, day domain.Day, holdings []*domain.Holding, valuations []*domain.ValuationSnapshot) *domain.NetWorthSnapshot {
	kinds := make(map[uuid.UUID]domain.HoldingKind, len(holdings))
	for _, h := range holdings {
		kinds[h.ID] = h.Kind
	}

	assets := decimal.Zero
	debts := decimal.Zero
	for _, v := range valuations {
		switch kinds[v.HoldingID] {
		case domain.HoldingKindAsset:
			assets = assets.Add(v.Value)
		case domain.HoldingKindDebt:
			debts = debts.Add(v.Value)
		}
	}

	return &domain.NetWorthSnapshot{
		UserID:      userID,
		Day:         day,
		TotalAssets: assets,
		TotalDebts:  debts,
		NetValue:    assets.Sub(debts),
	}
}

// CashFlowForMonth sums a user's transactions for one month into a cash-flow
// row.
func CashFlowForMonth(userID uuid.UUID, month domain.Month, transactions []*domain.Transaction) *domain.CashFlowSnapshot {
	income := decimal.Zero
	expenses := decimal.Zero
	for _, t := range transactions {
		switch t.Type {
		case domain.TransactionTypeIncome:
			income = income.Add(t.Amount)
		case domain.TransactionTypeExpense:
			expenses = expenses.Add(t.Amount)
		}
	}

	return &domain.CashFlowSnapshot{
		UserID:   userID,
		Month:    month,
		Income:   income,
		Expenses: expenses,
		NetFlow:  income.Sub(expenses),
	}
}

// CategoryFlow is one row of the by-category cash-flow view.
type CategoryFlow struct {
	Category string
	Income   decimal.Decimal
	Expenses decimal.Decimal
	NetFlow  decimal.Decimal
}

// CashFlowByCategory groups transactions by category and sorts the result by
// |netFlow| descending. Ties are broken by category name ascending so the
// ordering is stable across recomputes.
func CashFlowByCategory(transactions []*domain.Transaction) []CategoryFlow {
	byCategory := make(map[string]*CategoryFlow)
	for _, t := range transactions {
		flow, ok := byCategory[t.Category]
		if !ok {
			flow = &CategoryFlow{
				Category: t.Category,
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
			}
			byCategory[t.Category] = flow
		}
		switch t.Type {
		case domain.TransactionTypeIncome:
			flow.Income = flow.Income.Add(t.Amount)
		case domain.TransactionTypeExpense:
			flow.Expenses = flow.Expenses.Add(t.Amount)
		}
	}

	flows := make([]CategoryFlow, 0, len(byCategory))
	for _, flow := range byCategory {
		flow.NetFlow = flow.Income.Sub(flow.Expenses)
		flows = append(flows, *flow)
	}

	sort.Slice(flows, func(i, j int) bool {
		a, b := flows[i].NetFlow.Abs(), flows[j].NetFlow.Abs()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return flows[i].Category < flows[j].Category
	})

	return flows
}
