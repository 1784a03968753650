package domain

import (
	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
)

// HoldingKind represents the kind of holding in the system.
type HoldingKind string

const (
	HoldingKindAsset HoldingKind = "ASSET"
	HoldingKindDebt  HoldingKind = "DEBT"
)

// Holding represents an asset or a debt owned by a user. A holding carries its
// quantity history as a sparse stream of QuantityFacts. Stock holdings link a
// ticker and gain a price dimension; debts never do. Poolable assets
// contribute their current valuation to the envelope allocation pool.
type Holding struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Kind     HoldingKind
	Currency string
	TickerID *uuid.UUID
	Poolable bool
}

// IsStock reports whether the holding has a price dimension.
func (h *Holding) IsStock() bool { return h.TickerID != nil }

// Validate ensures the holding adheres to domain rules.
func (h *Holding) Validate() error {
	if h.Name == "" {
		return NewValidationError("holding name cannot be empty")
	}
	if h.Kind != HoldingKindAsset && h.Kind != HoldingKindDebt {
		return NewValidationError("holding kind must be ASSET or DEBT")
	}
	if err := ValidateCurrency(h.Currency); err != nil {
		return err
	}

	// Debts have no ticker/price dimension
	if h.Kind == HoldingKindDebt && h.TickerID != nil {
		return NewValidationError("debt holding cannot have a ticker")
	}

	// Only assets can feed the envelope pool
	if h.Poolable && h.Kind != HoldingKindAsset {
		return NewValidationError("only asset holdings can be poolable")
	}

	return nil
}

// ValidateCurrency checks that code is a known ISO-4217 currency code.
func ValidateCurrency(code string) error {
	if code == "" {
		return NewValidationError("currency cannot be empty")
	}
	if money.GetCurrency(code) == nil {
		return NewValidationError("unknown currency code: " + code)
	}
	return nil
}
