package facts

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimo/patrimo-backend/internal/adapter/repository/memory"
	"github.com/patrimo/patrimo-backend/internal/bus"
	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
	"github.com/patrimo/patrimo-backend/internal/usecase/invalidation"
)

func day(d int) domain.Day { return domain.NewDay(2024, time.May, d) }

// recorder collects published events for assertions.
type recorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recorder) handle(_ context.Context, ev bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []bus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bus.Event(nil), r.events...)
}

func newService(t *testing.T) (*Service, *memory.Store, *bus.Bus, *recorder) {
	t.Helper()
	store := memory.NewStore()
	b := bus.New(common.NewSilentLogger())
	rec := &recorder{}
	b.Subscribe(rec.handle,
		domain.FactKindQuantity, domain.FactKindPrice,
		domain.FactKindRate, domain.FactKindTransaction)

	svc := NewService(store.Facts(), store.Holdings(), store.Transactions(),
		invalidation.NewResolver(store.Facts(), store.Holdings()), b)
	return svc, store, b, rec
}

func addHolding(t *testing.T, store *memory.Store) *domain.Holding {
	t.Helper()
	h := &domain.Holding{
		ID: uuid.New(), UserID: uuid.New(),
		Name: "Savings", Kind: domain.HoldingKindAsset, Currency: "EUR",
	}
	require.NoError(t, store.Holdings().Create(context.Background(), h))
	return h
}

func TestUpsertQuantity_StandardFlow(t *testing.T) {
	ctx := context.Background()
	svc, store, b, rec := newService(t)
	h := addHolding(t, store)

	fact, err := svc.UpsertQuantity(ctx, QuantityInput{
		HoldingID: h.ID, Day: day(3), Quantity: decimal.NewFromInt(12),
	})
	require.NoError(t, err)
	b.Drain()

	// Persisted and visible to the carry-forward read.
	stored, err := store.Facts().QuantityAtOrBefore(ctx, h.ID, day(3))
	require.NoError(t, err)
	assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(12)))
	assert.True(t, fact.Quantity.Equal(decimal.NewFromInt(12)))

	// Published with the resolved start day.
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, domain.FactKindQuantity, events[0].Mutation.Kind)
	assert.Equal(t, day(3), events[0].Start)
}

func TestUpsertQuantity_FormulaEvaluated(t *testing.T) {
	ctx := context.Background()
	svc, store, b, _ := newService(t)
	h := addHolding(t, store)

	fact, err := svc.UpsertQuantity(ctx, QuantityInput{
		HoldingID: h.ID, Day: day(1), Formula: "3*140.5",
	})
	require.NoError(t, err)
	b.Drain()

	assert.True(t, fact.Quantity.Equal(decimal.NewFromFloat(421.5)))
	assert.Equal(t, "3*140.5", fact.Formula)
}

func TestUpsertQuantity_BadFormulaRejectedBeforeWrite(t *testing.T) {
	ctx := context.Background()
	svc, store, _, rec := newService(t)
	h := addHolding(t, store)

	_, err := svc.UpsertQuantity(ctx, QuantityInput{
		HoldingID: h.ID, Day: day(1), Formula: "3*(",
	})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))

	_, err = store.Facts().QuantityAtOrBefore(ctx, h.ID, day(1))
	assert.ErrorIs(t, err, domain.ErrNotFound, "nothing may be written on validation failure")
	assert.Empty(t, rec.all())
}

func TestUpsertQuantity_UnknownHolding(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	_, err := svc.UpsertQuantity(ctx, QuantityInput{
		HoldingID: uuid.New(), Day: day(1), Quantity: decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertQuantity_SameDayOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, store, b, _ := newService(t)
	h := addHolding(t, store)

	_, err := svc.UpsertQuantity(ctx, QuantityInput{HoldingID: h.ID, Day: day(2), Quantity: decimal.NewFromInt(5)})
	require.NoError(t, err)
	_, err = svc.UpsertQuantity(ctx, QuantityInput{HoldingID: h.ID, Day: day(2), Quantity: decimal.NewFromInt(7)})
	require.NoError(t, err)
	b.Drain()

	stored, err := store.Facts().QuantityAtOrBefore(ctx, h.ID, day(2))
	require.NoError(t, err)
	assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(7)))
}

func TestDeleteQuantity_PublishesDeletion(t *testing.T) {
	ctx := context.Background()
	svc, store, b, rec := newService(t)
	h := addHolding(t, store)

	_, err := svc.UpsertQuantity(ctx, QuantityInput{HoldingID: h.ID, Day: day(2), Quantity: decimal.NewFromInt(5)})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteQuantity(ctx, h.ID, day(2)))
	b.Drain()

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, domain.MutationDelete, events[1].Mutation.Op)
	assert.Equal(t, day(2), events[1].Start)
}

func TestUpsertRate_ValidatesCurrencies(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	err := svc.UpsertRate(ctx, &domain.RateFact{
		Base: "USD", Quote: "USD", Day: day(1), Rate: decimal.NewFromInt(1),
	})
	assert.True(t, domain.IsValidation(err))
}

func TestRecordTransaction_PublishesMonthStart(t *testing.T) {
	ctx := context.Background()
	svc, store, b, rec := newService(t)

	tx := &domain.Transaction{
		UserID: uuid.New(), Day: day(17),
		Type: domain.TransactionTypeExpense, Category: "Rent",
		Amount: decimal.NewFromInt(900),
	}
	require.NoError(t, svc.RecordTransaction(ctx, tx))
	b.Drain()

	assert.NotEqual(t, uuid.Nil, tx.ID, "missing ID is assigned")
	stored, err := store.Transactions().GetByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rent", stored.Category)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, day(1), events[0].Start, "cash flow invalidates from the month boundary")
}

func TestDeleteTransaction_UnknownID(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newService(t)

	err := svc.DeleteTransaction(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvaluateFormula(t *testing.T) {
	tests := []struct {
		formula string
		want    decimal.Decimal
		wantErr bool
	}{
		{formula: "3*140.5", want: decimal.NewFromFloat(421.5)},
		{formula: "(100+20)/4", want: decimal.NewFromInt(30)},
		{formula: "2", want: decimal.NewFromInt(2)},
		{formula: "3*(", wantErr: true},
		{formula: `"text"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got, err := EvaluateFormula(tt.formula)
			if tt.wantErr {
				assert.True(t, domain.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want))
		})
	}
}
