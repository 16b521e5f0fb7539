package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peternemser-ui/font-scanner-sub010/internal/models"
)

// ErrUserNotFound возвращается, когда пользователь отсутствует в базе.
var ErrUserNotFound = errors.New("user not found")

// RegisterUser сохраняет нового пользователя и возвращает его uid.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (username, email, password_hash, role, plan)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING uid`
	var uid string
	err := s.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role, user.Plan).Scan(&uid)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

// GetUserByUsername возвращает пользователя по имени.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, email, password_hash, role, plan,
				  COALESCE(stripe_customer_id, ''), created_at
			  FROM users WHERE username = $1`
	var u models.User
	err := s.DB.QueryRowContext(ctx, query, username).Scan(
		&u.UID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Plan,
		&u.StripeCustomerID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// GetUserByUID возвращает пользователя по его uid.
func (s *Storage) GetUserByUID(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, username, email, password_hash, role, plan,
				  COALESCE(stripe_customer_id, ''), created_at
			  FROM users WHERE uid = $1`
	var u models.User
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(
		&u.UID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Plan,
		&u.StripeCustomerID, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &u, nil
}

// GetUserPlan возвращает текущий тариф пользователя.
func (s *Storage) GetUserPlan(ctx context.Context, userUID string) (string, error) {
	const op = "storage.GetUserPlan"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT plan FROM users WHERE uid = $1`
	var plan string
	err := s.DB.QueryRowContext(ctx, query, userUID).Scan(&plan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return plan, nil
}

// SaveStripeCustomerID привязывает идентификатор клиента Stripe к пользователю.
func (s *Storage) SaveStripeCustomerID(ctx context.Context, userUID, customerID string) error {
	const op = "storage.SaveStripeCustomerID"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users SET stripe_customer_id = $1 WHERE uid = $2`
	if _, err := s.DB.ExecContext(ctx, query, customerID, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
