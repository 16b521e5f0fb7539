// Package entitlement содержит бизнес-логику проверки прав доступа
// к отчётам: подписка или разовая покупка конкретного отчёта.
package entitlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/peternemser-ui/font-scanner-sub010/internal/lib/sl"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

const summaryCacheTTL = 5 * time.Minute

// Repository определяет методы для чтения прав доступа из хранилища.
type Repository interface {
	// GetUserPlan возвращает текущий тариф пользователя.
	GetUserPlan(ctx context.Context, userUID string) (string, error)
	// GetEntitlementByUserUID возвращает запись подписки, если она есть.
	GetEntitlementByUserUID(ctx context.Context, userUID string) (*models.Entitlement, bool, error)
	// HasPurchasedReport проверяет разовую покупку отчёта.
	HasPurchasedReport(ctx context.Context, userUID, reportID string) (bool, error)
	// ListPurchasedReportIDs возвращает купленные отчёты пользователя.
	ListPurchasedReportIDs(ctx context.Context, userUID string) ([]string, error)
	// RevokeSubscription переводит пользователя на free, не трогая покупки.
	RevokeSubscription(ctx context.Context, userUID string) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
	Invalidate(key string) error
}

// Service реализует проверки доступа с кешированием сводки прав.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
}

// New создает новый экземпляр Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// SummaryCacheKey возвращает ключ кеша сводки прав пользователя.
func SummaryCacheKey(userUID string) string {
	return "entitlements:" + userUID
}

// HasAccess сообщает, виден ли пользователю премиум-контент отчёта:
// действующая подписка pro либо разовая покупка этого отчёта.
func (s *Service) HasAccess(ctx context.Context, userUID, reportID string) (bool, error) {
	const op = "entitlement.HasAccess"

	plan, err := s.repo.GetUserPlan(ctx, userUID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if plan == models.PlanPro {
		return true, nil
	}
	if reportID == "" {
		return false, nil
	}

	purchased, err := s.repo.HasPurchasedReport(ctx, userUID, reportID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return purchased, nil
}

// Summary возвращает сводку прав пользователя для слоя выдачи отчётов.
func (s *Service) Summary(ctx context.Context, userUID string) (*models.EntitlementSummary, error) {
	const op = "entitlement.Summary"

	key := SummaryCacheKey(userUID)
	var cached models.EntitlementSummary
	found, err := s.cache.Get(key, &cached)
	if err != nil {
		s.log.Warn("entitlement cache read failed", sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	plan, err := s.repo.GetUserPlan(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	purchased, err := s.repo.ListPurchasedReportIDs(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if purchased == nil {
		purchased = []string{}
	}

	summary := &models.EntitlementSummary{
		Plan:             plan,
		PurchasedReports: purchased,
	}
	if ent, ok, err := s.repo.GetEntitlementByUserUID(ctx, userUID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	} else if ok && plan == models.PlanPro {
		summary.SubscriptionInterval = ent.Interval
	}

	if err := s.cache.Set(key, summary, summaryCacheTTL); err != nil {
		s.log.Warn("entitlement cache write failed", sl.Err(err))
	}
	return summary, nil
}

// RevokeSubscription переводит пользователя на тариф free и сбрасывает кеш.
// Разовые покупки отчётов сохраняются.
func (s *Service) RevokeSubscription(ctx context.Context, userUID string) error {
	const op = "entitlement.RevokeSubscription"

	if err := s.repo.RevokeSubscription(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(SummaryCacheKey(userUID)); err != nil {
		s.log.Warn("entitlement cache invalidate failed", sl.Err(err))
	}
	return nil
}
