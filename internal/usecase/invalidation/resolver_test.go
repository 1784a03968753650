package invalidation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimo/patrimo-backend/internal/adapter/repository/memory"
	"github.com/patrimo/patrimo-backend/internal/domain"
)

func day(d int) domain.Day { return domain.NewDay(2024, time.June, d) }

func TestStartFor_QuantityMutationStartsAtFactDay(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	resolver := NewResolver(store.Facts(), store.Holdings())

	start, err := resolver.StartFor(ctx, domain.FactMutation{
		Kind:     domain.FactKindQuantity,
		Op:       domain.MutationUpdate,
		Quantity: &domain.QuantityFact{HoldingID: uuid.New(), Day: day(7)},
	})
	require.NoError(t, err)
	assert.Equal(t, day(7), start)
}

func TestStartFor_DeletedQuantityStartsAtDeletedDay(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	resolver := NewResolver(store.Facts(), store.Holdings())

	// Deleting the earliest fact still starts at its day: from there on the
	// series refills from whatever earlier state remains (possibly none).
	start, err := resolver.StartFor(ctx, domain.FactMutation{
		Kind:     domain.FactKindQuantity,
		Op:       domain.MutationDelete,
		Quantity: &domain.QuantityFact{HoldingID: uuid.New(), Day: day(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, day(1), start)
}

func TestStartFor_PriceMutationExtendsToDependentQuantityHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	facts := store.Facts()
	holdings := store.Holdings()
	resolver := NewResolver(facts, holdings)

	tickerID := uuid.New()
	holding := &domain.Holding{
		ID: uuid.New(), UserID: uuid.New(),
		Name: "Shares", Kind: domain.HoldingKindAsset, Currency: "EUR", TickerID: &tickerID,
	}
	require.NoError(t, holdings.Create(ctx, holding))

	// The holding's quantity history starts on day 2; a price introduced on
	// day 9 must back-fill from day 2, not from day 9.
	require.NoError(t, facts.UpsertQuantity(ctx, &domain.QuantityFact{
		HoldingID: holding.ID, Day: day(2), Quantity: decimal.NewFromInt(5),
	}))

	start, err := resolver.StartFor(ctx, domain.FactMutation{
		Kind:  domain.FactKindPrice,
		Op:    domain.MutationUpdate,
		Price: &domain.PriceFact{TickerID: tickerID, Day: day(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, day(2), start)
}

func TestStartFor_PriceMutationWithoutDependentsStartsAtFactDay(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	resolver := NewResolver(store.Facts(), store.Holdings())

	start, err := resolver.StartFor(ctx, domain.FactMutation{
		Kind:  domain.FactKindPrice,
		Op:    domain.MutationUpdate,
		Price: &domain.PriceFact{TickerID: uuid.New(), Day: day(9)},
	})
	require.NoError(t, err)
	assert.Equal(t, day(9), start)
}

func TestStartFor_RateMutationExtendsToDependentQuantityHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	facts := store.Facts()
	holdings := store.Holdings()
	resolver := NewResolver(facts, holdings)

	usdHolding := &domain.Holding{
		ID: uuid.New(), UserID: uuid.New(),
		Name: "USD account", Kind: domain.HoldingKindAsset, Currency: "USD",
	}
	eurHolding := &domain.Holding{
		ID: uuid.New(), UserID: uuid.New(),
		Name: "EUR account", Kind: domain.HoldingKindAsset, Currency: "EUR",
	}
	require.NoError(t, holdings.Create(ctx, usdHolding))
	require.NoError(t, holdings.Create(ctx, eurHolding))

	require.NoError(t, facts.UpsertQuantity(ctx, &domain.QuantityFact{
		HoldingID: usdHolding.ID, Day: day(3), Quantity: decimal.NewFromInt(100),
	}))
	// EUR holding history is earlier but does not depend on the USD rate.
	require.NoError(t, facts.UpsertQuantity(ctx, &domain.QuantityFact{
		HoldingID: eurHolding.ID, Day: day(1), Quantity: decimal.NewFromInt(100),
	}))

	start, err := resolver.StartFor(ctx, domain.FactMutation{
		Kind: domain.FactKindRate,
		Op:   domain.MutationUpdate,
		Rate: &domain.RateFact{Base: "USD", Quote: "EUR", Day: day(8)},
	})
	require.NoError(t, err)
	assert.Equal(t, day(3), start)
}

func TestStartFor_TransactionStartsAtMonthBoundary(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	resolver := NewResolver(store.Facts(), store.Holdings())

	start, err := resolver.StartFor(ctx, domain.FactMutation{
		Kind:        domain.FactKindTransaction,
		Op:          domain.MutationUpdate,
		Transaction: &domain.Transaction{Day: day(17)},
	})
	require.NoError(t, err)
	assert.Equal(t, day(1), start)
}
