// Package history is the read side of the derived time series.
package history

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/patrimo/patrimo-backend/internal/common"
	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Service reads valuation, net-worth and cash-flow snapshots. Reads never
// mutate snapshots; recompute runs detached, so read-after-write is not
// guaranteed to be immediately consistent.
type Service struct {
	Snapshots domain.SnapshotStore
	Logger    *common.Logger
}

// NewService creates a new history Service instance.
func NewService(snapshots domain.SnapshotStore, logger *common.Logger) *Service {
	return &Service{
		Snapshots: snapshots,
		Logger:    logger,
	}
}

// ValuationHistory returns a holding's valuation rows for the range,
// ascending by day.
func (s *Service) ValuationHistory(ctx context.Context, holdingID uuid.UUID, r domain.DayRange) ([]*domain.ValuationSnapshot, error) {
	rows, err := s.Snapshots.ValuationsInRange(ctx, holdingID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to read valuation history: %w", err)
	}
	return rows, nil
}

// NetWorthHistory returns a user's net-worth rows for the range, ascending by
// day. Every row is checked against the netValue identity; a violation is a
// symptom of a failed or interleaved recompute, so it is logged as a warning
// and the row is still returned.
func (s *Service) NetWorthHistory(ctx context.Context, userID uuid.UUID, r domain.DayRange) ([]*domain.NetWorthSnapshot, error) {
	rows, err := s.Snapshots.NetWorthInRange(ctx, userID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to read net worth history: %w", err)
	}

	for _, row := range rows {
		if err := row.CheckConsistency(); err != nil {
			s.Logger.Warn().
				Str("user", userID.String()).
				Str("day", row.Day.String()).
				Str("net_value", row.NetValue.String()).
				Str("assets", row.TotalAssets.String()).
				Str("debts", row.TotalDebts.String()).
				Msg("Net worth history: inconsistent snapshot, recompute may have failed")
		}
	}

	return rows, nil
}

// CashFlowHistory returns a user's monthly cash-flow rows for the range,
// ascending by month.
func (s *Service) CashFlowHistory(ctx context.Context, userID uuid.UUID, r domain.MonthRange) ([]*domain.CashFlowSnapshot, error) {
	rows, err := s.Snapshots.CashFlowInRange(ctx, userID, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("failed to read cash flow history: %w", err)
	}
	return rows, nil
}
