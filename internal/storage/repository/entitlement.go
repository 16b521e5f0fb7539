package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

// GetEntitlementByUserUID возвращает запись подписки пользователя.
// Второй результат false означает, что записи нет.
func (s *Storage) GetEntitlementByUserUID(ctx context.Context, userUID string) (*models.Entitlement, bool, error) {
	const op = "storage.GetEntitlementByUserUID"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, plan, stripe_subscription_id, status,
				  COALESCE(current_period_end, 'epoch'::timestamptz),
				  cancel_at_period_end, COALESCE(interval, ''), updated_at
			  FROM entitlements WHERE user_uid = $1`
	var e models.Entitlement
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(
		&e.UserUID, &e.Plan, &e.StripeSubscriptionID, &e.Status,
		&e.CurrentPeriodEnd, &e.CancelAtPeriodEnd, &e.Interval, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return &e, true, nil
}

// HasPurchasedReport проверяет наличие разовой покупки отчёта.
func (s *Storage) HasPurchasedReport(ctx context.Context, userUID, reportID string) (bool, error) {
	const op = "storage.HasPurchasedReport"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
				  SELECT 1 FROM purchased_reports
				  WHERE user_uid = $1 AND report_id = $2)`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, userUID, reportID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// ListPurchasedReportIDs возвращает идентификаторы всех купленных
// пользователем отчётов в порядке покупки.
func (s *Storage) ListPurchasedReportIDs(ctx context.Context, userUID string) ([]string, error) {
	const op = "storage.ListPurchasedReportIDs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT report_id FROM purchased_reports
			  WHERE user_uid = $1
			  ORDER BY purchased_at, id`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// RevokeSubscription переводит пользователя на тариф free, не трогая
// разовые покупки отчётов.
func (s *Storage) RevokeSubscription(ctx context.Context, userUID string) error {
	const op = "storage.RevokeSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET plan = $1 WHERE uid = $2`, models.PlanFree, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE entitlements SET plan = $1, status = $2, updated_at = NOW()
		 WHERE user_uid = $3`, models.PlanFree, models.StatusCanceled, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
