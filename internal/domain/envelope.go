package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Envelope represents a priority-ordered budget bucket claiming a share of
// the pooled asset value. Lower priority number = funded first. Funded,
// isFull and shortfall are never stored; they are computed fresh on each
// read against the current pool.
type Envelope struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Name     string
	Target   decimal.Decimal
	Priority int
}

// Validate ensures the envelope adheres to domain rules.
func (e *Envelope) Validate() error {
	if e.Name == "" {
		return NewValidationError("envelope name cannot be empty")
	}
	if e.UserID == uuid.Nil {
		return NewValidationError("envelope must reference a user")
	}
	if e.Target.LessThanOrEqual(decimal.Zero) {
		return NewValidationError("envelope target must be positive")
	}
	return nil
}
