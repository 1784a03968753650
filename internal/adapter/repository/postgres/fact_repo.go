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

// factStore implements domain.FactStore over three sparse fact tables:
// quantity_facts (holding_id, day), price_facts (ticker_id, day) and
// rate_facts (base, quote, day). The primary keys enforce the one-fact-per-
// (subject, day) invariant; writes are upserts.
type factStore struct {
	db *DB
}

// NewFactStore creates a new fact store.
func NewFactStore(db *DB) domain.FactStore {
	return &factStore{db: db}
}

// UpsertQuantity creates or overwrites the quantity fact at (holding, day).
func (r *factStore) UpsertQuantity(ctx context.Context, f *domain.QuantityFact) error {
	query := `
		INSERT INTO quantity_facts (holding_id, day, quantity, formula)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (holding_id, day)
		DO UPDATE SET quantity = EXCLUDED.quantity, formula = EXCLUDED.formula
	`

	_, err := r.db.ExecContext(ctx, query,
		f.HoldingID,
		f.Day.Time(),
		f.Quantity.String(),
		f.Formula,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert quantity fact: %w", err)
	}

	return nil
}

// DeleteQuantity removes the quantity fact at (holding, day).
func (r *factStore) DeleteQuantity(ctx context.Context, holdingID uuid.UUID, day domain.Day) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM quantity_facts WHERE holding_id = $1 AND day = $2`,
		holdingID, day.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete quantity fact: %w", err)
	}
	return requireRow(res)
}

// QuantityAtOrBefore retrieves the latest quantity fact with day <= the given day.
func (r *factStore) QuantityAtOrBefore(ctx context.Context, holdingID uuid.UUID, day domain.Day) (*domain.QuantityFact, error) {
	query := `
		SELECT holding_id, day, quantity, formula
		FROM quantity_facts
		WHERE holding_id = $1 AND day <= $2
		ORDER BY day DESC
		LIMIT 1
	`
	return r.scanQuantity(r.db.QueryRowContext(ctx, query, holdingID, day.Time()))
}

// EarliestQuantity retrieves the oldest quantity fact of the holding.
func (r *factStore) EarliestQuantity(ctx context.Context, holdingID uuid.UUID) (*domain.QuantityFact, error) {
	query := `
		SELECT holding_id, day, quantity, formula
		FROM quantity_facts
		WHERE holding_id = $1
		ORDER BY day ASC
		LIMIT 1
	`
	return r.scanQuantity(r.db.QueryRowContext(ctx, query, holdingID))
}

func (r *factStore) scanQuantity(row *sql.Row) (*domain.QuantityFact, error) {
	var f domain.QuantityFact
	var day sql.NullTime
	var quantityStr string

	err := row.Scan(&f.HoldingID, &day, &quantityStr, &f.Formula)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read quantity fact: %w", err)
	}

	f.Day = domain.DayOf(day.Time)
	quantity, err := decimal.NewFromString(quantityStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}
	f.Quantity = quantity

	return &f, nil
}

// UpsertPrice creates or overwrites the price fact at (ticker, day).
func (r *factStore) UpsertPrice(ctx context.Context, f *domain.PriceFact) error {
	query := `
		INSERT INTO price_facts (ticker_id, day, price)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker_id, day)
		DO UPDATE SET price = EXCLUDED.price
	`

	_, err := r.db.ExecContext(ctx, query, f.TickerID, f.Day.Time(), f.Price.String())
	if err != nil {
		return fmt.Errorf("failed to upsert price fact: %w", err)
	}

	return nil
}

// DeletePrice removes the price fact at (ticker, day).
func (r *factStore) DeletePrice(ctx context.Context, tickerID uuid.UUID, day domain.Day) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM price_facts WHERE ticker_id = $1 AND day = $2`,
		tickerID, day.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete price fact: %w", err)
	}
	return requireRow(res)
}

// PriceAtOrBefore retrieves the latest price fact with day <= the given day.
func (r *factStore) PriceAtOrBefore(ctx context.Context, tickerID uuid.UUID, day domain.Day) (*domain.PriceFact, error) {
	query := `
		SELECT ticker_id, day, price
		FROM price_facts
		WHERE ticker_id = $1 AND day <= $2
		ORDER BY day DESC
		LIMIT 1
	`

	var f domain.PriceFact
	var d sql.NullTime
	var priceStr string

	err := r.db.QueryRowContext(ctx, query, tickerID, day.Time()).Scan(&f.TickerID, &d, &priceStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read price fact: %w", err)
	}

	f.Day = domain.DayOf(d.Time)
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	f.Price = price

	return &f, nil
}

// UpsertRate creates or overwrites the rate fact at (base, quote, day).
func (r *factStore) UpsertRate(ctx context.Context, f *domain.RateFact) error {
	query := `
		INSERT INTO rate_facts (base, quote, day, rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (base, quote, day)
		DO UPDATE SET rate = EXCLUDED.rate
	`

	_, err := r.db.ExecContext(ctx, query, f.Base, f.Quote, f.Day.Time(), f.Rate.String())
	if err != nil {
		return fmt.Errorf("failed to upsert rate fact: %w", err)
	}

	return nil
}

// DeleteRate removes the rate fact at (base, quote, day).
func (r *factStore) DeleteRate(ctx context.Context, base, quote string, day domain.Day) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_facts WHERE base = $1 AND quote = $2 AND day = $3`,
		base, quote, day.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete rate fact: %w", err)
	}
	return requireRow(res)
}

// RateAtOrBefore retrieves the latest rate fact with day <= the given day.
func (r *factStore) RateAtOrBefore(ctx context.Context, base, quote string, day domain.Day) (*domain.RateFact, error) {
	query := `
		SELECT base, quote, day, rate
		FROM rate_facts
		WHERE base = $1 AND quote = $2 AND day <= $3
		ORDER BY day DESC
		LIMIT 1
	`

	var f domain.RateFact
	var d sql.NullTime
	var rateStr string

	err := r.db.QueryRowContext(ctx, query, base, quote, day.Time()).Scan(&f.Base, &f.Quote, &d, &rateStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read rate fact: %w", err)
	}

	f.Day = domain.DayOf(d.Time)
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse rate: %w", err)
	}
	f.Rate = rate

	return &f, nil
}

// requireRow maps a zero-row write to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
