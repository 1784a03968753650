// Package envelope manages budget envelopes and their request-time
// allocation against the pooled asset value.
package envelope

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patrimo/patrimo-backend/internal/domain"
	"github.com/patrimo/patrimo-backend/internal/usecase/allocator"
)

// Service handles envelope lifecycle and allocation operations.
type Service struct {
	Envelopes domain.EnvelopeRepository
	Holdings  domain.HoldingRepository
	Snapshots domain.SnapshotStore

	// Now is the clock used to pick the pool day. Defaults to domain.Today.
	Now func() domain.Day
}

// NewService creates a new envelope Service instance.
func NewService(envelopes domain.EnvelopeRepository, holdings domain.HoldingRepository, snapshots domain.SnapshotStore) *Service {
	return &Service{
		Envelopes: envelopes,
		Holdings:  holdings,
		Snapshots: snapshots,
		Now:       domain.Today,
	}
}

// Create validates and persists a new envelope.
func (s *Service) Create(ctx context.Context, e *domain.Envelope) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.Envelopes.Create(ctx, e); err != nil {
		return fmt.Errorf("failed to create envelope: %w", err)
	}
	return nil
}

// Update validates and overwrites an existing envelope.
func (s *Service) Update(ctx context.Context, e *domain.Envelope) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if _, err := s.Envelopes.GetByID(ctx, e.ID); err != nil {
		return fmt.Errorf("envelope %s: %w", e.ID, err)
	}
	if err := s.Envelopes.Update(ctx, e); err != nil {
		return fmt.Errorf("failed to update envelope: %w", err)
	}
	return nil
}

// Delete removes an envelope.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Envelopes.GetByID(ctx, id); err != nil {
		return fmt.Errorf("envelope %s: %w", id, err)
	}
	if err := s.Envelopes.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete envelope: %w", err)
	}
	return nil
}

// Reorder rewrites the priorities of the user's full envelope set in one
// transaction. orderedIDs must list every envelope of the user exactly once,
// in the new priority order.
func (s *Service) Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	existing, err := s.Envelopes.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to list envelopes: %w", err)
	}

	if len(orderedIDs) != len(existing) {
		return domain.NewValidationError("reorder must include every envelope of the user exactly once")
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, e := range existing {
		known[e.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if !known[id] {
			return fmt.Errorf("envelope %s: %w", id, domain.ErrNotFound)
		}
		if seen[id] {
			return domain.NewValidationError("reorder lists envelope " + id.String() + " more than once")
		}
		seen[id] = true
	}

	if err := s.Envelopes.Reorder(ctx, userID, orderedIDs); err != nil {
		return fmt.Errorf("failed to reorder envelopes: %w", err)
	}
	return nil
}

// Allocate computes the funding state of the user's envelopes against
// today's pool. The pool is the sum of today's valuation snapshots of the
// user's poolable asset holdings — a read against the derived series, not a
// separate computation. Holdings with no snapshot yet contribute nothing.
func (s *Service) Allocate(ctx context.Context, userID uuid.UUID) ([]allocator.Allocation, error) {
	pool, err := s.Pool(ctx, userID)
	if err != nil {
		return nil, err
	}

	envelopes, err := s.Envelopes.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}

	byValue := make([]domain.Envelope, 0, len(envelopes))
	for _, e := range envelopes {
		byValue = append(byValue, *e)
	}

	return allocator.Allocate(pool, byValue), nil
}

// Pool returns today's pooled asset value for the user.
func (s *Service) Pool(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	holdings, err := s.Holdings.ListByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list holdings: %w", err)
	}

	today := s.Now()
	pool := decimal.Zero
	for _, h := range holdings {
		if !h.Poolable {
			continue
		}
		snap, err := s.Snapshots.ValuationOn(ctx, h.ID, today)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return decimal.Zero, fmt.Errorf("failed to read valuation for holding %s: %w", h.ID, err)
		}
		pool = pool.Add(snap.Value)
	}

	return pool, nil
}
