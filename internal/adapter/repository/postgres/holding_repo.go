package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

const holdingColumns = `id, user_id, name, kind, currency, ticker_id, poolable`

// GetByID retrieves a holding by its ID
func (r *holdingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE id = $1`

	h, err := scanHolding(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return h, nil
}

// Create creates a new holding
func (r *holdingRepository) Create(ctx context.Context, h *domain.Holding) error {
	query := `
		INSERT INTO holdings (id, user_id, name, kind, currency, ticker_id, poolable)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		h.ID,
		h.UserID,
		h.Name,
		string(h.Kind),
		h.Currency,
		h.TickerID,
		h.Poolable,
	)
	if err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	return nil
}

// ListByUser retrieves all holdings of a user
func (r *holdingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE user_id = $1 ORDER BY name`
	return r.queryHoldings(ctx, query, userID)
}

// ListByTicker retrieves every holding linked to the given ticker
func (r *holdingRepository) ListByTicker(ctx context.Context, tickerID uuid.UUID) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE ticker_id = $1 ORDER BY name`
	return r.queryHoldings(ctx, query, tickerID)
}

// ListByCurrency retrieves every holding denominated in the given currency
func (r *holdingRepository) ListByCurrency(ctx context.Context, currency string) ([]*domain.Holding, error) {
	query := `SELECT ` + holdingColumns + ` FROM holdings WHERE currency = $1 ORDER BY name`
	return r.queryHoldings(ctx, query, currency)
}

// ListUsers retrieves the distinct user IDs owning at least one holding
func (r *holdingRepository) ListUsers(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM holdings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (r *holdingRepository) queryHoldings(ctx context.Context, query string, args ...any) ([]*domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanHolding(row scanner) (*domain.Holding, error) {
	var h domain.Holding
	var kind string
	var tickerID uuid.NullUUID

	err := row.Scan(&h.ID, &h.UserID, &h.Name, &kind, &h.Currency, &tickerID, &h.Poolable)
	if err != nil {
		return nil, err
	}

	h.Kind = domain.HoldingKind(kind)
	if tickerID.Valid {
		id := tickerID.UUID
		h.TickerID = &id
	}

	return &h, nil
}
