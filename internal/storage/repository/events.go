package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

// EventTx — транзакция обработки одного события платёжного провайдера.
// Первая операция всегда MarkEventProcessed: запись в журнал дедупликации
// и мутации прав фиксируются одним коммитом, поэтому повторная доставка
// того же события не может примениться дважды.
type EventTx struct {
	tx *sql.Tx
}

// BeginEventTx открывает транзакцию обработки события.
func (s *Storage) BeginEventTx(ctx context.Context) (*EventTx, error) {
	const op = "storage.BeginEventTx"
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &EventTx{tx: tx}, nil
}

// Commit фиксирует транзакцию.
func (t *EventTx) Commit() error {
	return t.tx.Commit()
}

// Rollback откатывает транзакцию. Безопасен после Commit.
func (t *EventTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// MarkEventProcessed добавляет событие в журнал дедупликации.
// Возвращает false, если событие с таким id уже обрабатывалось.
func (t *EventTx) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	const op = "storage.MarkEventProcessed"

	query := `INSERT INTO processed_events (event_id, event_type)
			  VALUES ($1, $2)
			  ON CONFLICT (event_id) DO NOTHING`
	result, err := t.tx.ExecContext(ctx, query, eventID, eventType)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected == 1, nil
}

// FindUserUIDByCustomerID находит пользователя по идентификатору клиента Stripe.
func (t *EventTx) FindUserUIDByCustomerID(ctx context.Context, customerID string) (string, bool, error) {
	const op = "storage.FindUserUIDByCustomerID"

	query := `SELECT uid FROM users WHERE stripe_customer_id = $1`
	var uid string
	err := t.tx.QueryRowContext(ctx, query, customerID).Scan(&uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return uid, true, nil
}

// UpsertEntitlement создаёт или обновляет запись подписки пользователя
// и синхронизирует его тариф.
func (t *EventTx) UpsertEntitlement(ctx context.Context, ent models.Entitlement) error {
	const op = "storage.UpsertEntitlement"

	query := `INSERT INTO entitlements
				  (user_uid, plan, stripe_subscription_id, status,
				   current_period_end, cancel_at_period_end, interval, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			  ON CONFLICT (user_uid) DO UPDATE SET
				  plan = EXCLUDED.plan,
				  stripe_subscription_id = EXCLUDED.stripe_subscription_id,
				  status = EXCLUDED.status,
				  current_period_end = EXCLUDED.current_period_end,
				  cancel_at_period_end = EXCLUDED.cancel_at_period_end,
				  interval = EXCLUDED.interval,
				  updated_at = NOW()`
	_, err := t.tx.ExecContext(ctx, query,
		ent.UserUID, ent.Plan, ent.StripeSubscriptionID, ent.Status,
		ent.CurrentPeriodEnd, ent.CancelAtPeriodEnd, ent.Interval)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkEntitlementCanceled переводит подписку пользователя в canceled.
func (t *EventTx) MarkEntitlementCanceled(ctx context.Context, userUID string) error {
	const op = "storage.MarkEntitlementCanceled"

	query := `UPDATE entitlements
			  SET plan = $1, status = $2, updated_at = NOW()
			  WHERE user_uid = $3`
	if _, err := t.tx.ExecContext(ctx, query, models.PlanFree, models.StatusCanceled, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetUserPlan обновляет тариф пользователя.
func (t *EventTx) SetUserPlan(ctx context.Context, userUID, plan string) error {
	const op = "storage.SetUserPlan"

	query := `UPDATE users SET plan = $1 WHERE uid = $2`
	if _, err := t.tx.ExecContext(ctx, query, plan, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreatePurchasedReport добавляет разовую покупку отчёта.
// Повторная вставка той же пары (user, report) — no-op, не ошибка.
func (t *EventTx) CreatePurchasedReport(ctx context.Context, userUID, reportID string) error {
	const op = "storage.CreatePurchasedReport"

	query := `INSERT INTO purchased_reports (user_uid, report_id)
			  VALUES ($1, $2)
			  ON CONFLICT (user_uid, report_id) DO NOTHING`
	if _, err := t.tx.ExecContext(ctx, query, userUID, reportID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SetStripeCustomerID привязывает клиента Stripe к пользователю внутри транзакции.
func (t *EventTx) SetStripeCustomerID(ctx context.Context, userUID, customerID string) error {
	const op = "storage.SetStripeCustomerID"

	query := `UPDATE users SET stripe_customer_id = $1 WHERE uid = $2`
	if _, err := t.tx.ExecContext(ctx, query, customerID, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
