package domain

import (
	"context"

	"github.com/google/uuid"
)

// FactStore defines the interface for raw fact persistence. Writing to an
// existing (subject, day) key overwrites; at most one fact exists per key.
// Lookup methods return ErrNotFound when no fact matches.
type FactStore interface {
	// UpsertQuantity creates or overwrites the quantity fact at its (holding, day) key
	UpsertQuantity(ctx context.Context, f *QuantityFact) error

	// DeleteQuantity removes the quantity fact at (holding, day)
	DeleteQuantity(ctx context.Context, holdingID uuid.UUID, day Day) error

	// QuantityAtOrBefore returns the latest quantity fact with day <= the given day
	QuantityAtOrBefore(ctx context.Context, holdingID uuid.UUID, day Day) (*QuantityFact, error)

	// EarliestQuantity returns the oldest quantity fact of the holding
	EarliestQuantity(ctx context.Context, holdingID uuid.UUID) (*QuantityFact, error)

	// UpsertPrice creates or overwrites the price fact at its (ticker, day) key
	UpsertPrice(ctx context.Context, f *PriceFact) error

	// DeletePrice removes the price fact at (ticker, day)
	DeletePrice(ctx context.Context, tickerID uuid.UUID, day Day) error

	// PriceAtOrBefore returns the latest price fact with day <= the given day
	PriceAtOrBefore(ctx context.Context, tickerID uuid.UUID, day Day) (*PriceFact, error)

	// UpsertRate creates or overwrites the rate fact at its (base, quote, day) key
	UpsertRate(ctx context.Context, f *RateFact) error

	// DeleteRate removes the rate fact at (base, quote, day)
	DeleteRate(ctx context.Context, base, quote string, day Day) error

	// RateAtOrBefore returns the latest rate fact with day <= the given day
	RateAtOrBefore(ctx context.Context, base, quote string, day Day) (*RateFact, error)
}

// HoldingRepository defines the interface for holding persistence operations.
type HoldingRepository interface {
	// GetByID retrieves a holding by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Holding, error)

	// Create creates a new holding
	Create(ctx context.Context, h *Holding) error

	// ListByUser retrieves all holdings of a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Holding, error)

	// ListByTicker retrieves every holding linked to the given ticker
	ListByTicker(ctx context.Context, tickerID uuid.UUID) ([]*Holding, error)

	// ListByCurrency retrieves every holding denominated in the given currency
	ListByCurrency(ctx context.Context, currency string) ([]*Holding, error)

	// ListUsers retrieves the distinct user IDs owning at least one holding
	ListUsers(ctx context.Context) ([]uuid.UUID, error)
}

// TransactionRepository defines the interface for transaction persistence operations.
type TransactionRepository interface {
	// Upsert creates or overwrites a transaction by its ID
	Upsert(ctx context.Context, t *Transaction) error

	// Delete removes a transaction by its ID
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)

	// ListByUserInMonth retrieves a user's transactions within one month
	ListByUserInMonth(ctx context.Context, userID uuid.UUID, m Month) ([]*Transaction, error)
}

// SnapshotStore defines the interface for derived snapshot persistence.
// Snapshots are owned by the recompute scheduler: safe to delete and rebuild.
type SnapshotStore interface {
	// ReplaceRange atomically overwrites the valuation rows of the given
	// holdings and the user's net-worth rows for every day in [from, to].
	// Either the whole range commits or nothing does.
	ReplaceRange(ctx context.Context, userID uuid.UUID, holdingIDs []uuid.UUID, from, to Day, valuations []*ValuationSnapshot, worths []*NetWorthSnapshot) error

	// ValuationsInRange retrieves a holding's valuation rows for [from, to], ascending by day
	ValuationsInRange(ctx context.Context, holdingID uuid.UUID, from, to Day) ([]*ValuationSnapshot, error)

	// ValuationOn retrieves a holding's valuation row for one day
	ValuationOn(ctx context.Context, holdingID uuid.UUID, day Day) (*ValuationSnapshot, error)

	// NetWorthInRange retrieves a user's net-worth rows for [from, to], ascending by day
	NetWorthInRange(ctx context.Context, userID uuid.UUID, from, to Day) ([]*NetWorthSnapshot, error)

	// ReplaceCashFlowRange atomically overwrites the user's cash-flow rows for [from, to]
	ReplaceCashFlowRange(ctx context.Context, userID uuid.UUID, from, to Month, rows []*CashFlowSnapshot) error

	// CashFlowInRange retrieves a user's cash-flow rows for [from, to], ascending by month
	CashFlowInRange(ctx context.Context, userID uuid.UUID, from, to Month) ([]*CashFlowSnapshot, error)
}

// EnvelopeRepository defines the interface for envelope persistence operations.
type EnvelopeRepository interface {
	// GetByID retrieves an envelope by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Envelope, error)

	// Create creates a new envelope
	Create(ctx context.Context, e *Envelope) error

	// Update overwrites an existing envelope
	Update(ctx context.Context, e *Envelope) error

	// Delete removes an envelope by its ID
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByUser retrieves a user's envelopes ordered by priority ascending
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Envelope, error)

	// Reorder rewrites the priorities of the user's full envelope set in one
	// transaction; orderedIDs lists every envelope of the user, new first-to-last
	Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error
}

// JobStore defines the interface for the durable recompute queue.
type JobStore interface {
	// Enqueue persists a new pending job
	Enqueue(ctx context.Context, job *Job) error

	// ClaimNext atomically claims the oldest due pending job, marking it
	// running and incrementing attempts. Returns nil when nothing is due.
	ClaimNext(ctx context.Context) (*Job, error)

	// Update overwrites a claimed job's status, error and scheduling fields
	Update(ctx context.Context, job *Job) error

	// ListByStatus retrieves jobs in the given status, oldest first
	ListByStatus(ctx context.Context, status JobStatus) ([]*Job, error)
}
