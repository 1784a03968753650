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

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// Upsert creates or overwrites a transaction by its ID
func (r *transactionRepository) Upsert(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, day, type, category, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET day = EXCLUDED.day, type = EXCLUDED.type,
			category = EXCLUDED.category, amount = EXCLUDED.amount
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.UserID,
		t.Day.Time(),
		string(t.Type),
		t.Category,
		t.Amount.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert transaction: %w", err)
	}

	return nil
}

// Delete removes a transaction by its ID
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireRow(res)
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT id, user_id, day, type, category, amount
		FROM transactions
		WHERE id = $1
	`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

// ListByUserInMonth retrieves a user's transactions within one month
func (r *transactionRepository) ListByUserInMonth(ctx context.Context, userID uuid.UUID, m domain.Month) ([]*domain.Transaction, error) {
	query := `
		SELECT id, user_id, day, type, category, amount
		FROM transactions
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day, id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, m.FirstDay().Time(), m.LastDay().Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var day sql.NullTime
	var txType string
	var amountStr string

	err := row.Scan(&t.ID, &t.UserID, &day, &txType, &t.Category, &amountStr)
	if err != nil {
		return nil, err
	}

	t.Day = domain.DayOf(day.Time)
	t.Type = domain.TransactionType(txType)

	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}
	t.Amount = amount

	return &t, nil
}
