package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

func day(d int) domain.Day { return domain.NewDay(2024, time.October, d) }

func TestFactStore_AtOrBeforePicksLatest(t *testing.T) {
	ctx := context.Background()
	facts := NewStore().Facts()
	holdingID := uuid.New()

	for _, d := range []int{1, 5, 9} {
		require.NoError(t, facts.UpsertQuantity(ctx, &domain.QuantityFact{
			HoldingID: holdingID, Day: day(d), Quantity: decimal.NewFromInt(int64(d)),
		}))
	}

	got, err := facts.QuantityAtOrBefore(ctx, holdingID, day(7))
	require.NoError(t, err)
	assert.Equal(t, day(5), got.Day)

	got, err = facts.QuantityAtOrBefore(ctx, holdingID, day(9))
	require.NoError(t, err)
	assert.Equal(t, day(9), got.Day)

	_, err = facts.QuantityAtOrBefore(ctx, uuid.New(), day(7))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFactStore_EarliestQuantity(t *testing.T) {
	ctx := context.Background()
	facts := NewStore().Facts()
	holdingID := uuid.New()

	for _, d := range []int{8, 2, 5} {
		require.NoError(t, facts.UpsertQuantity(ctx, &domain.QuantityFact{
			HoldingID: holdingID, Day: day(d), Quantity: decimal.NewFromInt(1),
		}))
	}

	got, err := facts.EarliestQuantity(ctx, holdingID)
	require.NoError(t, err)
	assert.Equal(t, day(2), got.Day)
}

func TestSnapshotStore_ReplaceRangeOnlyTouchesWindow(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	snapshots := store.Snapshots()
	userID := uuid.New()
	holdingID := uuid.New()

	row := func(d int, value int64) *domain.ValuationSnapshot {
		return &domain.ValuationSnapshot{
			HoldingID: holdingID, Day: day(d),
			Quantity: decimal.NewFromInt(value),
			Price:    decimal.NewFromInt(1), Rate: decimal.NewFromInt(1),
			Value: decimal.NewFromInt(value),
		}
	}

	require.NoError(t, snapshots.ReplaceRange(ctx, userID, []uuid.UUID{holdingID}, day(1), day(5),
		[]*domain.ValuationSnapshot{row(1, 10), row(3, 10), row(5, 10)}, nil))

	// Overwrite only [3, 5]; the day-1 row must survive.
	require.NoError(t, snapshots.ReplaceRange(ctx, userID, []uuid.UUID{holdingID}, day(3), day(5),
		[]*domain.ValuationSnapshot{row(4, 99)}, nil))

	got, err := snapshots.ValuationsInRange(ctx, holdingID, day(1), day(5))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, day(1), got[0].Day)
	assert.True(t, got[0].Value.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, day(4), got[1].Day)
	assert.True(t, got[1].Value.Equal(decimal.NewFromInt(99)))
}

func TestSnapshotStore_ValuationOn(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	snapshots := store.Snapshots()
	holdingID := uuid.New()

	require.NoError(t, snapshots.ReplaceRange(ctx, uuid.New(), []uuid.UUID{holdingID}, day(2), day(2),
		[]*domain.ValuationSnapshot{{
			HoldingID: holdingID, Day: day(2),
			Quantity: decimal.NewFromInt(7),
			Price:    decimal.NewFromInt(1), Rate: decimal.NewFromInt(1),
			Value: decimal.NewFromInt(7),
		}}, nil))

	got, err := snapshots.ValuationOn(ctx, holdingID, day(2))
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(7)))

	_, err = snapshots.ValuationOn(ctx, holdingID, day(3))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobStore_ClaimNextOldestFirst(t *testing.T) {
	ctx := context.Background()
	jobs := NewStore().Jobs()

	older := &domain.Job{
		ID: uuid.New(), Kind: domain.JobKindNetWorth, UserID: uuid.New(),
		Start: day(1), Status: domain.JobStatusPending,
		MaxAttempts: 3, RunAfter: time.Now().Add(-time.Minute),
		CreatedAt: time.Now().Add(-time.Hour),
	}
	newer := &domain.Job{
		ID: uuid.New(), Kind: domain.JobKindNetWorth, UserID: uuid.New(),
		Start: day(1), Status: domain.JobStatusPending,
		MaxAttempts: 3, RunAfter: time.Now().Add(-time.Minute),
		CreatedAt: time.Now(),
	}
	require.NoError(t, jobs.Enqueue(ctx, newer))
	require.NoError(t, jobs.Enqueue(ctx, older))

	claimed, err := jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, older.ID, claimed.ID)
	assert.Equal(t, domain.JobStatusRunning, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)

	// A running job is not claimable again.
	claimed, err = jobs.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, newer.ID, claimed.ID)

	claimed, err = jobs.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestEnvelopeRepo_ReorderAllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	envelopes := store.Envelopes()
	userID := uuid.New()

	a := &domain.Envelope{ID: uuid.New(), UserID: userID, Name: "A", Target: decimal.NewFromInt(10), Priority: 1}
	b := &domain.Envelope{ID: uuid.New(), UserID: userID, Name: "B", Target: decimal.NewFromInt(10), Priority: 2}
	require.NoError(t, envelopes.Create(ctx, a))
	require.NoError(t, envelopes.Create(ctx, b))

	// One unknown ID fails the whole reorder; existing priorities survive.
	err := envelopes.Reorder(ctx, userID, []uuid.UUID{b.ID, uuid.New()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := envelopes.ListByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "A", got[0].Name)
	assert.Equal(t, 1, got[0].Priority)
}

func TestStore_ReturnsDefensiveCopies(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	holdings := store.Holdings()

	h := &domain.Holding{
		ID: uuid.New(), UserID: uuid.New(),
		Name: "Original", Kind: domain.HoldingKindAsset, Currency: "EUR",
	}
	require.NoError(t, holdings.Create(ctx, h))

	got, err := holdings.GetByID(ctx, h.ID)
	require.NoError(t, err)
	got.Name = "Mutated"

	again, err := holdings.GetByID(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Name)
}
