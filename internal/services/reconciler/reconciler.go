// Package reconciler применяет события платёжного провайдера к правам
// доступа пользователей. Обработка идемпотентна: журнал обработанных
// событий и мутации прав пишутся одной транзакцией, поэтому повторная
// доставка события (провайдер гарантирует at-least-once) не применяет
// переход состояния дважды.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
	"github.com/peternemser-ui/font-scanner-sub010/internal/metrics"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
	"github.com/peternemser-ui/font-scanner-sub010/internal/services/entitlement"
)

// ErrUnknownUser возвращается, когда событие не удаётся привязать к
// пользователю. Событие не помечается обработанным, повторная доставка
// провайдера попробует ещё раз.
var ErrUnknownUser = errors.New("no user matches provider event")

// Tx — транзакция обработки одного события.
type Tx interface {
	MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error)
	FindUserUIDByCustomerID(ctx context.Context, customerID string) (string, bool, error)
	UpsertEntitlement(ctx context.Context, ent models.Entitlement) error
	MarkEntitlementCanceled(ctx context.Context, userUID string) error
	SetUserPlan(ctx context.Context, userUID, plan string) error
	CreatePurchasedReport(ctx context.Context, userUID, reportID string) error
	SetStripeCustomerID(ctx context.Context, userUID, customerID string) error
	Commit() error
	Rollback() error
}

// Store открывает транзакции обработки событий.
type Store interface {
	BeginEventTx(ctx context.Context) (Tx, error)
}

// Cache описывает сброс закешированных прав пользователя.
type Cache interface {
	Invalidate(key string) error
}

// Publisher публикует биллинговые события для воркеров уведомлений.
type Publisher interface {
	Publish(routingKey string, message any) error
}

// Result — итог обработки события, отдаётся вызывающему HTTP-слою.
type Result struct {
	Processed bool   `json:"processed"`
	Reason    string `json:"reason,omitempty"`
}

// BillingEvent — сообщение для воркеров уведомлений после успешной обработки.
type BillingEvent struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	UserUID   string `json:"user_uid"`
}

// Service применяет события провайдера к хранилищу прав.
type Service struct {
	store     Store
	cache     Cache
	publisher Publisher
	log       *slog.Logger
}

// New создает новый экземпляр Service. publisher может быть nil,
// тогда уведомления не публикуются.
func New(store Store, cache Cache, publisher Publisher, log *slog.Logger) *Service {
	return &Service{
		store:     store,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// ProcessEvent применяет одно верифицированное событие провайдера.
//
// Дедупликация идёт только по id события, без упорядочивания между
// событиями одной подписки: поздний повтор updated может перезаписать
// состояние, оставленное более ранним deleted. Последнее применённое
// событие определяет итоговый тариф.
func (s *Service) ProcessEvent(ctx context.Context, ev models.ProviderEvent) (Result, error) {
	const op = "reconciler.ProcessEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", ev.ID),
		slog.String("event_type", ev.Type),
	)

	if ev.ID == "" {
		return Result{}, fmt.Errorf("%s: empty event id", op)
	}

	tx, err := s.store.BeginEventTx(ctx)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "failed").Inc()
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	fresh, err := tx.MarkEventProcessed(ctx, ev.ID, ev.Type)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "failed").Inc()
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !fresh {
		log.Info("duplicate webhook delivery skipped")
		metrics.WebhookEvents.WithLabelValues(ev.Type, "duplicate").Inc()
		return Result{Processed: false, Reason: "already processed"}, nil
	}

	var userUID string
	outcome := "processed"

	switch normalizeType(ev.Type) {
	case "subscription.created", "subscription.updated":
		userUID, err = s.applySubscription(ctx, tx, ev)
	case "subscription.deleted":
		userUID, err = s.applyDeleted(ctx, tx, ev)
	case "invoice.payment_succeeded", "invoice.payment_failed":
		// Права не меняются, событие только фиксируется в журнале.
		log.Info("invoice event recorded")
	case "checkout.session.completed":
		userUID, err = s.applyCheckoutCompleted(ctx, tx, ev)
	default:
		log.Info("unhandled event type recorded")
		outcome = "ignored"
	}
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "failed").Inc()
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		metrics.WebhookEvents.WithLabelValues(ev.Type, "failed").Inc()
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	metrics.WebhookEvents.WithLabelValues(ev.Type, outcome).Inc()

	if userUID != "" {
		if err := s.cache.Invalidate(entitlement.SummaryCacheKey(userUID)); err != nil {
			log.Warn("entitlement cache invalidate failed", sl.Err(err))
		}
		s.publish(ev, userUID, log)
	}

	log.Info("webhook event applied", slog.String("user_uid", userUID))
	return Result{Processed: true}, nil
}

// applySubscription обрабатывает created/updated: пишет запись подписки
// и выводит тариф пользователя из статуса.
func (s *Service) applySubscription(ctx context.Context, tx Tx, ev models.ProviderEvent) (string, error) {
	userUID, err := s.resolveUser(ctx, tx, ev)
	if err != nil {
		return "", err
	}

	plan := models.PlanFree
	if models.GrantsAccess(ev.Object.Status) {
		plan = models.PlanPro
	}

	ent := models.Entitlement{
		UserUID:              userUID,
		Plan:                 plan,
		StripeSubscriptionID: ev.Object.ID,
		Status:               ev.Object.Status,
		CurrentPeriodEnd:     ev.Object.PeriodEnd(),
		CancelAtPeriodEnd:    ev.Object.CancelAtPeriodEnd,
		Interval:             ev.Object.Plan.Interval,
	}
	if err := tx.UpsertEntitlement(ctx, ent); err != nil {
		return "", err
	}
	if err := tx.SetUserPlan(ctx, userUID, plan); err != nil {
		return "", err
	}
	return userUID, nil
}

// applyDeleted переводит пользователя на free. Разовые покупки отчётов
// событие не затрагивает.
func (s *Service) applyDeleted(ctx context.Context, tx Tx, ev models.ProviderEvent) (string, error) {
	userUID, err := s.resolveUser(ctx, tx, ev)
	if err != nil {
		return "", err
	}
	if err := tx.MarkEntitlementCanceled(ctx, userUID); err != nil {
		return "", err
	}
	if err := tx.SetUserPlan(ctx, userUID, models.PlanFree); err != nil {
		return "", err
	}
	return userUID, nil
}

// applyCheckoutCompleted фиксирует завершённый checkout: разовая покупка
// отчёта даёт право доступа, в обоих режимах к пользователю привязывается
// клиент Stripe.
func (s *Service) applyCheckoutCompleted(ctx context.Context, tx Tx, ev models.ProviderEvent) (string, error) {
	userUID, err := s.resolveUser(ctx, tx, ev)
	if err != nil {
		return "", err
	}

	if customer := string(ev.Object.Customer); customer != "" {
		if err := tx.SetStripeCustomerID(ctx, userUID, customer); err != nil {
			return "", err
		}
	}

	if ev.Object.Mode == "payment" {
		reportID := ev.Object.Metadata["report_id"]
		if reportID == "" {
			s.log.Warn("payment checkout without report_id metadata",
				slog.String("event_id", ev.ID))
			return userUID, nil
		}
		if err := tx.CreatePurchasedReport(ctx, userUID, reportID); err != nil {
			return "", err
		}
	}
	return userUID, nil
}

// resolveUser привязывает событие к пользователю: сначала по metadata
// user_uid (его проставляет наш checkout), затем по клиенту Stripe.
func (s *Service) resolveUser(ctx context.Context, tx Tx, ev models.ProviderEvent) (string, error) {
	if uid := ev.Object.Metadata["user_uid"]; uid != "" {
		return uid, nil
	}
	if customer := string(ev.Object.Customer); customer != "" {
		uid, found, err := tx.FindUserUIDByCustomerID(ctx, customer)
		if err != nil {
			return "", err
		}
		if found {
			return uid, nil
		}
	}
	return "", ErrUnknownUser
}

func (s *Service) publish(ev models.ProviderEvent, userUID string, log *slog.Logger) {
	if s.publisher == nil {
		return
	}
	msg := BillingEvent{
		EventID:   ev.ID,
		EventType: ev.Type,
		UserUID:   userUID,
	}
	if err := s.publisher.Publish(normalizeType(ev.Type), msg); err != nil {
		// Уведомления не участвуют в идемпотентности, событие уже применено.
		log.Warn("failed to publish billing event", sl.Err(err))
	}
}

// normalizeType убирает префикс "customer.", который Stripe добавляет
// к событиям подписок.
func normalizeType(eventType string) string {
	return strings.TrimPrefix(strings.ToLower(eventType), "customer.")
}
