package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
)

func quantityEvent() Event {
	return Event{
		Mutation: domain.FactMutation{
			Kind:     domain.FactKindQuantity,
			Op:       domain.MutationUpdate,
			Quantity: &domain.QuantityFact{HoldingID: uuid.New(), Day: domain.NewDay(2024, time.May, 1)},
		},
		Start: domain.NewDay(2024, time.May, 1),
	}
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	b := New(common.NewSilentLogger())

	var mu sync.Mutex
	calls := 0
	handler := func(context.Context, Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	b.Subscribe(handler, domain.FactKindQuantity)
	b.Subscribe(handler, domain.FactKindQuantity)

	b.Publish(context.Background(), quantityEvent())
	b.Drain()

	assert.Equal(t, 2, calls)
}

func TestPublish_FiltersByKind(t *testing.T) {
	b := New(common.NewSilentLogger())

	var mu sync.Mutex
	var kinds []domain.FactKind
	record := func(kind domain.FactKind) Handler {
		return func(context.Context, Event) {
			mu.Lock()
			kinds = append(kinds, kind)
			mu.Unlock()
		}
	}

	b.Subscribe(record(domain.FactKindQuantity), domain.FactKindQuantity)
	b.Subscribe(record(domain.FactKindTransaction), domain.FactKindTransaction)

	b.Publish(context.Background(), quantityEvent())
	b.Drain()

	assert.Equal(t, []domain.FactKind{domain.FactKindQuantity}, kinds)
}

func TestPublish_DoesNotBlockOnSlowHandler(t *testing.T) {
	b := New(common.NewSilentLogger())

	release := make(chan struct{})
	b.Subscribe(func(context.Context, Event) { <-release }, domain.FactKindQuantity)

	done := make(chan struct{})
	go func() {
		b.Publish(context.Background(), quantityEvent())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a subscribed handler")
	}
	close(release)
	b.Drain()
}

func TestPublish_RecoversPanickingHandler(t *testing.T) {
	b := New(common.NewSilentLogger())

	var mu sync.Mutex
	survived := false
	b.Subscribe(func(context.Context, Event) { panic("boom") }, domain.FactKindQuantity)
	b.Subscribe(func(context.Context, Event) {
		mu.Lock()
		survived = true
		mu.Unlock()
	}, domain.FactKindQuantity)

	b.Publish(context.Background(), quantityEvent())
	b.Drain()

	assert.True(t, survived, "a panicking handler must not affect the others")
}

func TestPublish_NoSubscribersIsNoop(t *testing.T) {
	b := New(common.NewSilentLogger())
	b.Publish(context.Background(), quantityEvent())
	b.Drain()
}
