// Package facts is the mutation boundary for the three sparse fact streams
// and the transaction stream. It validates synchronously, persists through
// the fact store, and hands the recompute trigger to the event bus.
package facts

import (
	"context"
	"fmt"

	"github.com/PaesslerAG/gval"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patrimo/patrimo-backend/internal/bus"
	"github.com/patrimo/patrimo-backend/internal/domain"
	"github.com/patrimo/patrimo-backend/internal/usecase/invalidation"
)

// Service handles fact create/update/delete operations.
type Service struct {
	Facts        domain.FactStore
	Holdings     domain.HoldingRepository
	Transactions domain.TransactionRepository
	Ranges       *invalidation.Resolver
	Bus          *bus.Bus
}

// NewService creates a new facts Service instance.
func NewService(facts domain.FactStore, holdings domain.HoldingRepository, transactions domain.TransactionRepository, ranges *invalidation.Resolver, b *bus.Bus) *Service {
	return &Service{
		Facts:        facts,
		Holdings:     holdings,
		Transactions: transactions,
		Ranges:       ranges,
		Bus:          b,
	}
}

// QuantityInput is the input for recording a quantity fact. Either Quantity
// is set directly or Formula holds an arithmetic expression to evaluate
// (e.g. "3*140.5").
type QuantityInput struct {
	HoldingID uuid.UUID
	Day       domain.Day
	Quantity  decimal.Decimal
	Formula   string
}

// UpsertQuantity validates and writes a quantity fact, then triggers the
// dependent recomputes. Writing to an existing (holding, day) key overwrites.
func (s *Service) UpsertQuantity(ctx context.Context, input QuantityInput) (*domain.QuantityFact, error) {
	if _, err := s.Holdings.GetByID(ctx, input.HoldingID); err != nil {
		return nil, fmt.Errorf("holding %s: %w", input.HoldingID, err)
	}

	quantity := input.Quantity
	if input.Formula != "" {
		evaluated, err := EvaluateFormula(input.Formula)
		if err != nil {
			return nil, err
		}
		quantity = evaluated
	}

	fact := &domain.QuantityFact{
		HoldingID: input.HoldingID,
		Day:       input.Day,
		Quantity:  quantity,
		Formula:   input.Formula,
	}
	if err := fact.Validate(); err != nil {
		return nil, err
	}

	if err := s.Facts.UpsertQuantity(ctx, fact); err != nil {
		return nil, fmt.Errorf("failed to write quantity fact: %w", err)
	}

	// Create and update share the same invalidation rule, so the upsert
	// is published uniformly as an update.
	if err := s.OnFactMutated(ctx, domain.FactMutation{
		Kind:     domain.FactKindQuantity,
		Op:       domain.MutationUpdate,
		Quantity: fact,
	}); err != nil {
		return nil, err
	}

	return fact, nil
}

// DeleteQuantity removes a quantity fact. The gap it leaves is refilled with
// the next earlier fact's carried value by the triggered recompute.
func (s *Service) DeleteQuantity(ctx context.Context, holdingID uuid.UUID, day domain.Day) error {
	if err := s.Facts.DeleteQuantity(ctx, holdingID, day); err != nil {
		return fmt.Errorf("failed to delete quantity fact: %w", err)
	}
	return s.OnFactMutated(ctx, domain.FactMutation{
		Kind:     domain.FactKindQuantity,
		Op:       domain.MutationDelete,
		Quantity: &domain.QuantityFact{HoldingID: holdingID, Day: day},
	})
}

// UpsertPrice validates and writes a price fact, then triggers the dependent
// recomputes for every holding linked to the ticker.
func (s *Service) UpsertPrice(ctx context.Context, fact *domain.PriceFact) error {
	if err := fact.Validate(); err != nil {
		return err
	}
	if err := s.Facts.UpsertPrice(ctx, fact); err != nil {
		return fmt.Errorf("failed to write price fact: %w", err)
	}
	return s.OnFactMutated(ctx, domain.FactMutation{
		Kind:  domain.FactKindPrice,
		Op:    domain.MutationUpdate,
		Price: fact,
	})
}

// DeletePrice removes a price fact.
func (s *Service) DeletePrice(ctx context.Context, tickerID uuid.UUID, day domain.Day) error {
	if err := s.Facts.DeletePrice(ctx, tickerID, day); err != nil {
		return fmt.Errorf("failed to delete price fact: %w", err)
	}
	return s.OnFactMutated(ctx, domain.FactMutation{
		Kind:  domain.FactKindPrice,
		Op:    domain.MutationDelete,
		Price: &domain.PriceFact{TickerID: tickerID, Day: day},
	})
}

// UpsertRate validates and writes an exchange-rate fact, then triggers the
// dependent recomputes for every holding in the base currency.
func (s *Service) UpsertRate(ctx context.Context, fact *domain.RateFact) error {
	if err := fact.Validate(); err != nil {
		return err
	}
	if err := s.Facts.UpsertRate(ctx, fact); err != nil {
		return fmt.Errorf("failed to write rate fact: %w", err)
	}
	return s.OnFactMutated(ctx, domain.FactMutation{
		Kind: domain.FactKindRate,
		Op:   domain.MutationUpdate,
		Rate: fact,
	})
}

// DeleteRate removes a rate fact.
func (s *Service) DeleteRate(ctx context.Context, base, quote string, day domain.Day) error {
	if err := s.Facts.DeleteRate(ctx, base, quote, day); err != nil {
		return fmt.Errorf("failed to delete rate fact: %w", err)
	}
	return s.OnFactMutated(ctx, domain.FactMutation{
		Kind: domain.FactKindRate,
		Op:   domain.MutationDelete,
		Rate: &domain.RateFact{Base: base, Quote: quote, Day: day},
	})
}

// RecordTransaction validates and writes a transaction, then triggers the
// cash-flow recompute for its month.
func (s *Service) RecordTransaction(ctx context.Context, t *domain.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if err := s.Transactions.Upsert(ctx, t); err != nil {
		return fmt.Errorf("failed to write transaction: %w", err)
	}
	return s.OnFactMutated(ctx, domain.FactMutation{
		Kind:        domain.FactKindTransaction,
		Op:          domain.MutationUpdate,
		Transaction: t,
	})
}

// DeleteTransaction removes a transaction and triggers the cash-flow
// recompute for the month it occupied.
func (s *Service) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	t, err := s.Transactions.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("transaction %s: %w", id, err)
	}
	if err := s.Transactions.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return s.OnFactMutated(ctx, domain.FactMutation{
		Kind:        domain.FactKindTransaction,
		Op:          domain.MutationDelete,
		Transaction: t,
	})
}

// OnFactMutated resolves the affected range for an already-persisted mutation
// and publishes it on the bus. The mutation path only pays for range
// resolution and dispatch; the rebuild itself runs detached.
func (s *Service) OnFactMutated(ctx context.Context, m domain.FactMutation) error {
	start, err := s.Ranges.StartFor(ctx, m)
	if err != nil {
		return fmt.Errorf("failed to resolve affected range: %w", err)
	}
	s.Bus.Publish(ctx, bus.Event{Mutation: m, Start: start})
	return nil
}

// EvaluateFormula evaluates a quantity formula to a decimal. An expression
// that does not parse or does not yield a number is a validation error,
// rejected before any fact is written.
func EvaluateFormula(formula string) (decimal.Decimal, error) {
	value, err := gval.Evaluate(formula, nil)
	if err != nil {
		return decimal.Zero, domain.NewValidationError(fmt.Sprintf("unparseable quantity formula %q: %v", formula, err))
	}
	result, ok := value.(float64)
	if !ok {
		return decimal.Zero, domain.NewValidationError(fmt.Sprintf("quantity formula %q does not evaluate to a number", formula))
	}
	return decimal.NewFromFloat(result), nil
}
