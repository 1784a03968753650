// Package bus connects fact mutations to the recompute handlers that depend
// on them. A single mutation fans out to every handler subscribed to its
// kind, so a price change re-triggers net worth even though it arrived on a
// different path than a quantity change.
package bus

import (
	"context"
	"sync"

	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Event is a fact mutation together with its resolved affected start day.
type Event struct {
	Mutation domain.FactMutation
	Start    domain.Day
}

// Handler processes one event. Handlers run detached from the publisher and
// must do their own error reporting; the expected pattern is to enqueue a
// durable recompute job and return.
type Handler func(ctx context.Context, ev Event)

// Bus is an in-process publish/subscribe dispatcher. It is a plain injected
// value, never a package singleton, so tests can wire their own.
type Bus struct {
	mu       sync.RWMutex
	handlers map[domain.FactKind][]Handler
	logger   *common.Logger

	// wg tracks in-flight handlers so shutdown and tests can drain them.
	wg sync.WaitGroup
}

// New creates a new Bus instance.
func New(logger *common.Logger) *Bus {
	return &Bus{
		handlers: make(map[domain.FactKind][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the given fact kinds.
func (b *Bus) Subscribe(h Handler, kinds ...domain.FactKind) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, kind := range kinds {
		b.handlers[kind] = append(b.handlers[kind], h)
	}
}

// Publish dispatches the event to every handler subscribed to its kind. Each
// handler runs in its own goroutine; the publisher does not wait for or learn
// the outcome of any handler. A panicking handler is recovered and logged so
// it cannot take down the mutation path.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.mu.RLock()
	handlers := b.handlers[ev.Mutation.Kind]
	b.mu.RUnlock()

	for _, h := range handlers {
		h := h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error().
						Interface("panic", r).
						Str("kind", string(ev.Mutation.Kind)).
						Msg("Event bus: handler panicked")
				}
			}()
			h(ctx, ev)
		}()
	}
}

// Drain blocks until every in-flight handler has returned.
func (b *Bus) Drain() { b.wg.Wait() }
