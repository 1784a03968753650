package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// Transaction represents a discrete money movement for a user. Unlike
// quantity/price/rate facts, transactions are events, not sparse state:
// they are summed per month, never carried forward.
type Transaction struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Day      Day
	Type     TransactionType
	Category string
	Amount   decimal.Decimal // absolute value, always positive
}

// Validate ensures the transaction adheres to domain rules.
func (t *Transaction) Validate() error {
	if t.UserID == uuid.Nil {
		return NewValidationError("transaction must reference a user")
	}
	if t.Day.IsZero() {
		return NewValidationError("transaction must have a day")
	}
	if t.Type != TransactionTypeIncome && t.Type != TransactionTypeExpense {
		return NewValidationError("transaction type must be INCOME or EXPENSE")
	}
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("transaction amount must be positive (absolute value)")
	}
	return nil
}
