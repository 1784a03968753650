package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// snapshotStore implements domain.SnapshotStore. Range overwrites run inside
// a single transaction: delete the affected rows, insert the rebuilt ones,
// commit. A failure partway rolls back, leaving the previous rows intact.
type snapshotStore struct {
	db *DB
}

// NewSnapshotStore creates a new snapshot store
func NewSnapshotStore(db *DB) domain.SnapshotStore {
	return &snapshotStore{db: db}
}

// ReplaceRange atomically overwrites the valuation and net-worth rows for [from, to]
func (r *snapshotStore) ReplaceRange(ctx context.Context, userID uuid.UUID, holdingIDs []uuid.UUID, from, to domain.Day, valuations []*domain.ValuationSnapshot, worths []*domain.NetWorthSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(holdingIDs))
	for _, id := range holdingIDs {
		ids = append(ids, id.String())
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM valuation_snapshots WHERE holding_id = ANY($1) AND day >= $2 AND day <= $3`,
		pq.Array(ids), from.Time(), to.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear valuation range: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM net_worth_snapshots WHERE user_id = $1 AND day >= $2 AND day <= $3`,
		userID, from.Time(), to.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear net worth range: %w", err)
	}

	insertValuation := `
		INSERT INTO valuation_snapshots
			(holding_id, day, quantity, price, rate, value,
			 quantity_carried, price_carried, rate_carried)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, v := range valuations {
		_, err = tx.ExecContext(ctx, insertValuation,
			v.HoldingID, v.Day.Time(),
			v.Quantity.String(), v.Price.String(), v.Rate.String(), v.Value.String(),
			v.QuantityCarried, v.PriceCarried, v.RateCarried,
		)
		if err != nil {
			return fmt.Errorf("failed to insert valuation snapshot: %w", err)
		}
	}

	insertWorth := `
		INSERT INTO net_worth_snapshots (user_id, day, total_assets, total_debts, net_value)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, w := range worths {
		_, err = tx.ExecContext(ctx, insertWorth,
			w.UserID, w.Day.Time(),
			w.TotalAssets.String(), w.TotalDebts.String(), w.NetValue.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert net worth snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot range: %w", err)
	}
	return nil
}

// ValuationsInRange retrieves a holding's valuation rows for [from, to], ascending by day
func (r *snapshotStore) ValuationsInRange(ctx context.Context, holdingID uuid.UUID, from, to domain.Day) ([]*domain.ValuationSnapshot, error) {
	query := `
		SELECT holding_id, day, quantity, price, rate, value,
			quantity_carried, price_carried, rate_carried
		FROM valuation_snapshots
		WHERE holding_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day
	`

	rows, err := r.db.QueryContext(ctx, query, holdingID, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list valuation snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.ValuationSnapshot
	for rows.Next() {
		v, err := scanValuation(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, v)
	}
	return snapshots, rows.Err()
}

// ValuationOn retrieves a holding's valuation row for one day
func (r *snapshotStore) ValuationOn(ctx context.Context, holdingID uuid.UUID, day domain.Day) (*domain.ValuationSnapshot, error) {
	query := `
		SELECT holding_id, day, quantity, price, rate, value,
			quantity_carried, price_carried, rate_carried
		FROM valuation_snapshots
		WHERE holding_id = $1 AND day = $2
	`

	v, err := scanValuation(r.db.QueryRowContext(ctx, query, holdingID, day.Time()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// NetWorthInRange retrieves a user's net-worth rows for [from, to], ascending by day
func (r *snapshotStore) NetWorthInRange(ctx context.Context, userID uuid.UUID, from, to domain.Day) ([]*domain.NetWorthSnapshot, error) {
	query := `
		SELECT user_id, day, total_assets, total_debts, net_value
		FROM net_worth_snapshots
		WHERE user_id = $1 AND day >= $2 AND day <= $3
		ORDER BY day
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from.Time(), to.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list net worth snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.NetWorthSnapshot
	for rows.Next() {
		var w domain.NetWorthSnapshot
		var day sql.NullTime
		var assetsStr, debtsStr, netStr string

		if err := rows.Scan(&w.UserID, &day, &assetsStr, &debtsStr, &netStr); err != nil {
			return nil, fmt.Errorf("failed to scan net worth snapshot: %w", err)
		}
		w.Day = domain.DayOf(day.Time)
		if w.TotalAssets, err = decimal.NewFromString(assetsStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_assets: %w", err)
		}
		if w.TotalDebts, err = decimal.NewFromString(debtsStr); err != nil {
			return nil, fmt.Errorf("failed to parse total_debts: %w", err)
		}
		if w.NetValue, err = decimal.NewFromString(netStr); err != nil {
			return nil, fmt.Errorf("failed to parse net_value: %w", err)
		}
		snapshots = append(snapshots, &w)
	}
	return snapshots, rows.Err()
}

// ReplaceCashFlowRange atomically overwrites the user's cash-flow rows for [from, to]
func (r *snapshotStore) ReplaceCashFlowRange(ctx context.Context, userID uuid.UUID, from, to domain.Month, rows []*domain.CashFlowSnapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cash flow transaction: %w", err)
	}
	defer tx.Rollback()

	// Months are stored as their first day.
	_, err = tx.ExecContext(ctx,
		`DELETE FROM cash_flow_snapshots WHERE user_id = $1 AND month >= $2 AND month <= $3`,
		userID, from.FirstDay().Time(), to.FirstDay().Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to clear cash flow range: %w", err)
	}

	insert := `
		INSERT INTO cash_flow_snapshots (user_id, month, income, expenses, net_flow)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, row := range rows {
		_, err = tx.ExecContext(ctx, insert,
			row.UserID, row.Month.FirstDay().Time(),
			row.Income.String(), row.Expenses.String(), row.NetFlow.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert cash flow snapshot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cash flow range: %w", err)
	}
	return nil
}

// CashFlowInRange retrieves a user's cash-flow rows for [from, to], ascending by month
func (r *snapshotStore) CashFlowInRange(ctx context.Context, userID uuid.UUID, from, to domain.Month) ([]*domain.CashFlowSnapshot, error) {
	query := `
		SELECT user_id, month, income, expenses, net_flow
		FROM cash_flow_snapshots
		WHERE user_id = $1 AND month >= $2 AND month <= $3
		ORDER BY month
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from.FirstDay().Time(), to.FirstDay().Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list cash flow snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.CashFlowSnapshot
	for rows.Next() {
		var c domain.CashFlowSnapshot
		var month sql.NullTime
		var incomeStr, expensesStr, netStr string

		if err := rows.Scan(&c.UserID, &month, &incomeStr, &expensesStr, &netStr); err != nil {
			return nil, fmt.Errorf("failed to scan cash flow snapshot: %w", err)
		}
		c.Month = domain.MonthOf(domain.DayOf(month.Time))
		if c.Income, err = decimal.NewFromString(incomeStr); err != nil {
			return nil, fmt.Errorf("failed to parse income: %w", err)
		}
		if c.Expenses, err = decimal.NewFromString(expensesStr); err != nil {
			return nil, fmt.Errorf("failed to parse expenses: %w", err)
		}
		if c.NetFlow, err = decimal.NewFromString(netStr); err != nil {
			return nil, fmt.Errorf("failed to parse net_flow: %w", err)
		}
		snapshots = append(snapshots, &c)
	}
	return snapshots, rows.Err()
}

func scanValuation(row scanner) (*domain.ValuationSnapshot, error) {
	var v domain.ValuationSnapshot
	var day sql.NullTime
	var quantityStr, priceStr, rateStr, valueStr string

	err := row.Scan(&v.HoldingID, &day,
		&quantityStr, &priceStr, &rateStr, &valueStr,
		&v.QuantityCarried, &v.PriceCarried, &v.RateCarried,
	)
	if err != nil {
		return nil, err
	}

	v.Day = domain.DayOf(day.Time)
	if v.Quantity, err = decimal.NewFromString(quantityStr); err != nil {
		return nil, fmt.Errorf("failed to parse quantity: %w", err)
	}
	if v.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	if v.Rate, err = decimal.NewFromString(rateStr); err != nil {
		return nil, fmt.Errorf("failed to parse rate: %w", err)
	}
	if v.Value, err = decimal.NewFromString(valueStr); err != nil {
		return nil, fmt.Errorf("failed to parse value: %w", err)
	}

	return &v, nil
}
