// Package models содержит доменные структуры сервиса: пользователей,
// права доступа к отчётам и события платёжного провайдера.
package models

import "time"

// Тарифные планы пользователя.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID              string    // Уникальный идентификатор пользователя
	Email            string    // Электронная почта
	Username         string    // Имя пользователя (уникальное)
	PasswordHash     string    // Хэш пароля пользователя
	Role             string    // Роль пользователя, admin или user
	Plan             string    // Текущий тариф: free или pro
	StripeCustomerID string    // Идентификатор клиента в Stripe, пустой до первой оплаты
	CreatedAt        time.Time // Дата регистрации
}
