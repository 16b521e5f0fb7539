package models

import "time"

// Статусы подписки, дающие доступ к премиум-разделам отчётов.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// Entitlement — запись о жизненном цикле подписки пользователя.
// Создаётся на subscription.created, мутирует на updated,
// переводится в canceled на deleted. Владеет записью только реконсилер.
type Entitlement struct {
	UserUID              string    // Владелец подписки
	Plan                 string    // free или pro, выводится из статуса
	StripeSubscriptionID string    // Идентификатор подписки у провайдера
	Status               string    // Статус, как его сообщил провайдер
	CurrentPeriodEnd     time.Time // Конец оплаченного периода
	CancelAtPeriodEnd    bool      // Помечена ли подписка к отмене
	Interval             string    // Интервал тарификации: month, year
	UpdatedAt            time.Time
}

// GrantsAccess сообщает, даёт ли статус подписки доступ к премиум-контенту.
func GrantsAccess(status string) bool {
	return status == StatusActive || status == StatusTrialing
}

// PurchasedReport — разовое право доступа к одному отчёту.
// Запись только добавляется и не зависит от состояния подписки.
type PurchasedReport struct {
	UserUID     string
	ReportID    string
	PurchasedAt time.Time
}

// EntitlementSummary — ответ на запрос прав пользователя, который
// потребляет слой выдачи отчётов.
type EntitlementSummary struct {
	Plan                 string   `json:"plan"`
	SubscriptionInterval string   `json:"subscriptionInterval,omitempty"`
	PurchasedReports     []string `json:"purchasedReports"`
}
