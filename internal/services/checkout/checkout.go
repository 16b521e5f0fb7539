// Package checkout создаёт платёжные сессии Stripe: подписка pro
// или разовая покупка одного отчёта.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/customer"

	"github.com/peternemser-ui/font-scanner-sub010/internal/config"
	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

// UserRepository описывает доступ к пользователям для привязки клиента Stripe.
type UserRepository interface {
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
	SaveStripeCustomerID(ctx context.Context, userUID, customerID string) error
}

// Service создаёт checkout-сессии у платёжного провайдера.
type Service struct {
	repo UserRepository
	cfg  config.Stripe
	log  *slog.Logger
}

// New создает новый экземпляр Service и настраивает ключ Stripe.
func New(repo UserRepository, cfg config.Stripe, log *slog.Logger) *Service {
	stripe.Key = cfg.SecretKey
	return &Service{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
}

// CreateSubscriptionSession создаёт сессию оформления подписки pro.
// Возвращает URL страницы оплаты.
func (s *Service) CreateSubscriptionSession(ctx context.Context, userUID string) (string, error) {
	const op = "checkout.CreateSubscriptionSession"

	customerID, err := s.ensureCustomer(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.ProPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{"user_uid": userUID},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			// user_uid попадает в события subscription.* и позволяет
			// реконсилеру привязать их к пользователю без поиска по клиенту.
			Metadata: map[string]string{"user_uid": userUID},
		},
	}
	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sess.URL, nil
}

// CreateReportSession создаёт сессию разовой покупки отчёта reportID.
func (s *Service) CreateReportSession(ctx context.Context, userUID, reportID string) (string, error) {
	const op = "checkout.CreateReportSession"

	customerID, err := s.ensureCustomer(ctx, userUID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	params := &stripe.CheckoutSessionParams{
		Customer:   stripe.String(customerID),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.ReportPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_uid":  userUID,
			"report_id": reportID,
		},
	}
	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return sess.URL, nil
}

// ensureCustomer возвращает идентификатор клиента Stripe для пользователя,
// создавая клиента при первом обращении.
func (s *Service) ensureCustomer(ctx context.Context, userUID string) (string, error) {
	user, err := s.repo.GetUserByUID(ctx, userUID)
	if err != nil {
		return "", err
	}
	if user.StripeCustomerID != "" {
		return user.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Name:  stripe.String(user.Username),
		Email: stripe.String(user.Email),
	}
	c, err := customer.New(params)
	if err != nil {
		return "", err
	}
	if err := s.repo.SaveStripeCustomerID(ctx, userUID, c.ID); err != nil {
		return "", err
	}
	return c.ID, nil
}
