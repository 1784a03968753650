package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// envelopeRepository implements domain.EnvelopeRepository
type envelopeRepository struct {
	db *DB
}

// NewEnvelopeRepository creates a new envelope repository
func NewEnvelopeRepository(db *DB) domain.EnvelopeRepository {
	return &envelopeRepository{db: db}
}

// GetByID retrieves an envelope by its ID
func (r *envelopeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Envelope, error) {
	query := `
		SELECT id, user_id, name, target, priority
		FROM envelopes
		WHERE id = $1
	`

	e, err := scanEnvelope(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get envelope: %w", err)
	}
	return e, nil
}

// Create creates a new envelope
func (r *envelopeRepository) Create(ctx context.Context, e *domain.Envelope) error {
	query := `
		INSERT INTO envelopes (id, user_id, name, target, priority)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query, e.ID, e.UserID, e.Name, e.Target.String(), e.Priority)
	if err != nil {
		return fmt.Errorf("failed to create envelope: %w", err)
	}
	return nil
}

// Update overwrites an existing envelope
func (r *envelopeRepository) Update(ctx context.Context, e *domain.Envelope) error {
	query := `
		UPDATE envelopes
		SET name = $2, target = $3, priority = $4
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query, e.ID, e.Name, e.Target.String(), e.Priority)
	if err != nil {
		return fmt.Errorf("failed to update envelope: %w", err)
	}
	return requireRow(res)
}

// Delete removes an envelope by its ID
func (r *envelopeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM envelopes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete envelope: %w", err)
	}
	return requireRow(res)
}

// ListByUser retrieves a user's envelopes ordered by priority ascending
func (r *envelopeRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Envelope, error) {
	query := `
		SELECT id, user_id, name, target, priority
		FROM envelopes
		WHERE user_id = $1
		ORDER BY priority ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list envelopes: %w", err)
	}
	defer rows.Close()

	var envelopes []*domain.Envelope
	for rows.Next() {
		e, err := scanEnvelope(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan envelope: %w", err)
		}
		envelopes = append(envelopes, e)
	}
	return envelopes, rows.Err()
}

// Reorder rewrites the priorities of the user's envelope set in one transaction.
// Priorities become the positions in orderedIDs, starting at 1.
func (r *envelopeRepository) Reorder(ctx context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reorder transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE envelopes
		SET priority = $3
		WHERE id = $1 AND user_id = $2
	`
	for i, id := range orderedIDs {
		res, err := tx.ExecContext(ctx, query, id, userID, i+1)
		if err != nil {
			return fmt.Errorf("failed to reorder envelope %s: %w", id, err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("envelope %s does not belong to user %s: %w", id, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reorder: %w", err)
	}
	return nil
}

func scanEnvelope(row scanner) (*domain.Envelope, error) {
	var e domain.Envelope
	var targetStr string

	if err := row.Scan(&e.ID, &e.UserID, &e.Name, &targetStr, &e.Priority); err != nil {
		return nil, err
	}

	target, err := decimal.NewFromString(targetStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse envelope target: %w", err)
	}
	e.Target = target

	return &e, nil
}
