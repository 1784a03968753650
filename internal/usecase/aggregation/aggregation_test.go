package aggregation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

func TestNetWorthForDay_AssetsMinusDebts(t *testing.T) {
	userID := uuid.New()
	day := domain.NewDay(2024, time.July, 1)

	asset := &domain.Holding{ID: uuid.New(), UserID: userID, Kind: domain.HoldingKindAsset}
	debt := &domain.Holding{ID: uuid.New(), UserID: userID, Kind: domain.HoldingKindDebt}
	holdings := []*domain.Holding{asset, debt}

	valuations := []*domain.ValuationSnapshot{
		{HoldingID: asset.ID, Day: day, Value: decimal.NewFromInt(1500)},
		{HoldingID: debt.ID, Day: day, Value: decimal.NewFromInt(400)},
	}

	worth := NetWorthForDay(userID, day, holdings, valuations)

	assert.True(t, worth.TotalAssets.Equal(decimal.NewFromInt(1500)))
	assert.True(t, worth.TotalDebts.Equal(decimal.NewFromInt(400)))
	assert.True(t, worth.NetValue.Equal(decimal.NewFromInt(1100)))
	assert.NoError(t, worth.CheckConsistency())
}

func TestNetWorthForDay_NoValuations(t *testing.T) {
	userID := uuid.New()
	day := domain.NewDay(2024, time.July, 1)

	worth := NetWorthForDay(userID, day, nil, nil)

	assert.True(t, worth.TotalAssets.IsZero())
	assert.True(t, worth.TotalDebts.IsZero())
	assert.True(t, worth.NetValue.IsZero())
}

func TestCashFlowForMonth_StandardFlow(t *testing.T) {
	userID := uuid.New()
	month := domain.Month{Year: 2024, Month: time.July}

	transactions := []*domain.Transaction{
		{UserID: userID, Type: domain.TransactionTypeIncome, Amount: decimal.NewFromInt(1000)},
		{UserID: userID, Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(400)},
		{UserID: userID, Type: domain.TransactionTypeExpense, Amount: decimal.NewFromInt(100)},
	}

	flow := CashFlowForMonth(userID, month, transactions)

	assert.True(t, flow.Income.Equal(decimal.NewFromInt(1000)))
	assert.True(t, flow.Expenses.Equal(decimal.NewFromInt(500)))
	assert.True(t, flow.NetFlow.Equal(decimal.NewFromInt(500)))
}

func TestCashFlowForMonth_EmptyMonthIsZeroRow(t *testing.T) {
	flow := CashFlowForMonth(uuid.New(), domain.Month{Year: 2024, Month: time.July}, nil)

	assert.True(t, flow.Income.IsZero())
	assert.True(t, flow.Expenses.IsZero())
	assert.True(t, flow.NetFlow.IsZero())
}

func TestCashFlowByCategory_SortsByMagnitude(t *testing.T) {
	transactions := []*domain.Transaction{
		{Type: domain.TransactionTypeExpense, Category: "Rent", Amount: decimal.NewFromInt(900)},
		{Type: domain.TransactionTypeExpense, Category: "Groceries", Amount: decimal.NewFromInt(300)},
		{Type: domain.TransactionTypeIncome, Category: "Salary", Amount: decimal.NewFromInt(2500)},
		{Type: domain.TransactionTypeExpense, Category: "Groceries", Amount: decimal.NewFromInt(100)},
	}

	flows := CashFlowByCategory(transactions)
	require.Len(t, flows, 3)

	assert.Equal(t, "Salary", flows[0].Category)
	assert.Equal(t, "Rent", flows[1].Category)
	assert.Equal(t, "Groceries", flows[2].Category)
	assert.True(t, flows[2].NetFlow.Equal(decimal.NewFromInt(-400)))
}

func TestCashFlowByCategory_TiesBreakByName(t *testing.T) {
	transactions := []*domain.Transaction{
		{Type: domain.TransactionTypeExpense, Category: "Zoo", Amount: decimal.NewFromInt(50)},
		{Type: domain.TransactionTypeExpense, Category: "Books", Amount: decimal.NewFromInt(50)},
	}

	flows := CashFlowByCategory(transactions)
	require.Len(t, flows, 2)

	assert.Equal(t, "Books", flows[0].Category)
	assert.Equal(t, "Zoo", flows[1].Category)
}
