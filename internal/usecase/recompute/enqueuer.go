package recompute

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrimo/patrimo-backend/internal/bus"
	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
	"github.com/patrimo/patrimo-backend/internal/queue"
)

// Enqueuer turns published fact mutations into durable recompute jobs. It is
// the subscriber side of the bus: one job per affected user, deduplicated
// within a single event.
type Enqueuer struct {
	Holdings    domain.HoldingRepository
	Jobs        domain.JobStore
	Logger      *common.Logger
	MaxAttempts int
}

// NewEnqueuer creates a new Enqueuer instance.
func NewEnqueuer(holdings domain.HoldingRepository, jobs domain.JobStore, logger *common.Logger, maxAttempts int) *Enqueuer {
	return &Enqueuer{
		Holdings:    holdings,
		Jobs:        jobs,
		Logger:      logger,
		MaxAttempts: maxAttempts,
	}
}

// Register subscribes the enqueuer's handlers on the bus.
func (e *Enqueuer) Register(b *bus.Bus) {
	b.Subscribe(e.HandleNetWorth, domain.FactKindQuantity, domain.FactKindPrice, domain.FactKindRate)
	b.Subscribe(e.HandleCashFlow, domain.FactKindTransaction)
}

// HandleNetWorth enqueues a net-worth rebuild for every user whose holdings
// depend on the mutated fact.
func (e *Enqueuer) HandleNetWorth(ctx context.Context, ev bus.Event) {
	users, err := e.affectedUsers(ctx, ev.Mutation)
	if err != nil {
		e.Logger.Error().Err(err).
			Str("kind", string(ev.Mutation.Kind)).
			Msg("Recompute enqueuer: failed to resolve affected users")
		return
	}

	for _, userID := range users {
		e.enqueue(ctx, queue.NewJob(domain.JobKindNetWorth, userID, ev.Start, e.MaxAttempts))
	}
}

// HandleCashFlow enqueues a cash-flow rebuild for the transaction's owner.
func (e *Enqueuer) HandleCashFlow(ctx context.Context, ev bus.Event) {
	if ev.Mutation.Transaction == nil {
		return
	}
	e.enqueue(ctx, queue.NewJob(domain.JobKindCashFlow, ev.Mutation.Transaction.UserID, ev.Start, e.MaxAttempts))
}

func (e *Enqueuer) enqueue(ctx context.Context, job *domain.Job) {
	if err := e.Jobs.Enqueue(ctx, job); err != nil {
		e.Logger.Error().Err(err).
			Str("kind", string(job.Kind)).
			Str("user", job.UserID.String()).
			Msg("Recompute enqueuer: failed to enqueue job")
		return
	}
	e.Logger.Debug().
		Str("job", job.ID.String()).
		Str("kind", string(job.Kind)).
		Str("user", job.UserID.String()).
		Str("start", job.Start.String()).
		Msg("Recompute enqueuer: job enqueued")
}

// affectedUsers resolves the owners touched by a mutation. A quantity fact
// affects its holding's owner; a price fact every owner of a holding on the
// ticker; a rate fact every owner of a holding in the base currency.
func (e *Enqueuer) affectedUsers(ctx context.Context, m domain.FactMutation) ([]uuid.UUID, error) {
	switch m.Kind {
	case domain.FactKindQuantity:
		h, err := e.Holdings.GetByID(ctx, m.Quantity.HoldingID)
		if err != nil {
			return nil, fmt.Errorf("failed to load holding %s: %w", m.Quantity.HoldingID, err)
		}
		return []uuid.UUID{h.UserID}, nil
	case domain.FactKindPrice:
		holdings, err := e.Holdings.ListByTicker(ctx, m.Price.TickerID)
		if err != nil {
			return nil, fmt.Errorf("failed to list holdings for ticker %s: %w", m.Price.TickerID, err)
		}
		return ownersOf(holdings), nil
	case domain.FactKindRate:
		holdings, err := e.Holdings.ListByCurrency(ctx, m.Rate.Base)
		if err != nil {
			return nil, fmt.Errorf("failed to list holdings in %s: %w", m.Rate.Base, err)
		}
		return ownersOf(holdings), nil
	}
	return nil, fmt.Errorf("unexpected fact kind %q", m.Kind)
}

func ownersOf(holdings []*domain.Holding) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(holdings))
	var users []uuid.UUID
	for _, h := range holdings {
		if !seen[h.UserID] {
			seen[h.UserID] = true
			users = append(users, h.UserID)
		}
	}
	return users
}
