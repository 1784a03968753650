package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FactKind identifies which sparse fact stream a mutation belongs to.
type FactKind string

const (
	FactKindQuantity    FactKind = "QUANTITY"
	FactKindPrice       FactKind = "PRICE"
	FactKindRate        FactKind = "RATE"
	FactKindTransaction FactKind = "TRANSACTION"
)

// MutationOp is the operation performed on a fact.
type MutationOp string

const (
	MutationCreate MutationOp = "CREATE"
	MutationUpdate MutationOp = "UPDATE"
	MutationDelete MutationOp = "DELETE"
)

// QuantityFact records the quantity of a holding on a given day.
// At most one fact exists per (holding, day); writes to an existing key overwrite.
// Formula keeps the original user expression (e.g. "3*140.5") when the quantity
// was entered as one; it is informational once evaluated.
type QuantityFact struct {
	HoldingID uuid.UUID
	Day       Day
	Quantity  decimal.Decimal
	Formula   string
}

// Validate ensures the fact adheres to domain rules.
func (f *QuantityFact) Validate() error {
	if f.HoldingID == uuid.Nil {
		return NewValidationError("quantity fact must reference a holding")
	}
	if f.Day.IsZero() {
		return NewValidationError("quantity fact must have a day")
	}
	if f.Quantity.IsNegative() {
		return NewValidationError("quantity cannot be negative")
	}
	return nil
}

// PriceFact records the unit price of a ticker on a given day.
// One price is shared by every holding linked to the ticker.
type PriceFact struct {
	TickerID uuid.UUID
	Day      Day
	Price    decimal.Decimal
}

// Validate ensures the fact adheres to domain rules.
func (f *PriceFact) Validate() error {
	if f.TickerID == uuid.Nil {
		return NewValidationError("price fact must reference a ticker")
	}
	if f.Day.IsZero() {
		return NewValidationError("price fact must have a day")
	}
	if f.Price.IsNegative() {
		return NewValidationError("price cannot be negative")
	}
	return nil
}

// RateFact records the exchange rate from Base to Quote on a given day.
type RateFact struct {
	Base  string
	Quote string
	Day   Day
	Rate  decimal.Decimal
}

// Validate ensures the fact adheres to domain rules.
func (f *RateFact) Validate() error {
	if err := ValidateCurrency(f.Base); err != nil {
		return err
	}
	if err := ValidateCurrency(f.Quote); err != nil {
		return err
	}
	if f.Base == f.Quote {
		return NewValidationError("rate base and quote currencies must differ")
	}
	if f.Day.IsZero() {
		return NewValidationError("rate fact must have a day")
	}
	if f.Rate.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("rate must be positive")
	}
	return nil
}

// FactMutation describes a single create/update/delete of an upstream fact.
// Exactly one of the fact pointers is set, matching Kind.
type FactMutation struct {
	Kind FactKind
	Op   MutationOp

	Quantity    *QuantityFact
	Price       *PriceFact
	Rate        *RateFact
	Transaction *Transaction
}

// Day returns the day of the mutated fact.
func (m FactMutation) Day() Day {
	switch m.Kind {
	case FactKindQuantity:
		return m.Quantity.Day
	case FactKindPrice:
		return m.Price.Day
	case FactKindRate:
		return m.Rate.Day
	case FactKindTransaction:
		return m.Transaction.Day
	}
	return Day{}
}
