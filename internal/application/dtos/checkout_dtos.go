// Package dtos - Checkout DTOs для передачи данных о покупках.
package dtos

import "time"

// ============================================
// Commands (Write операции)
// ============================================

// CreateCheckoutSessionCommand - команда для старта checkout'а.
// Покупатель может быть гостем, поэтому контакты опциональны.
type CreateCheckoutSessionCommand struct {
	ProductID        string `json:"product_id" validate:"required"`
	Email            string `json:"email,omitempty" validate:"omitempty,email"`
	Phone            string `json:"phone,omitempty" validate:"omitempty,e164"`
	TelegramUserID   string `json:"telegram_user_id,omitempty"`
	TelegramUsername string `json:"telegram_username,omitempty"`
	PreferBizum      bool   `json:"prefer_bizum,omitempty"`
	Origin           string `json:"origin,omitempty" validate:"omitempty,url"` // база для success/cancel URL
	BuyerIP          string `json:"-"`                                         // из запроса, не из body
}

// CompletePaymentCommand - ручное завершение оплаты оператором.
type CompletePaymentCommand struct {
	OrderID       string `json:"order_id" validate:"required"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

// SimulatePaymentCommand - тестовое завершение оплаты.
// Доступно только при включённых тестовых endpoint'ах.
type SimulatePaymentCommand struct {
	OrderID string `json:"-"` // из path
}

// VerifyPaymentQuery - проверка оплаты при возврате покупателя.
type VerifyPaymentQuery struct {
	SessionID string `json:"session_id" validate:"required"`
	OrderID   string `json:"order_id,omitempty"`
}

// ============================================
// Queries (Read операции)
// ============================================

// GetCheckoutStatusQuery - запрос статуса по сессии шлюза.
type GetCheckoutStatusQuery struct {
	SessionID string `json:"session_id" validate:"required"`
}

// GetOrderQuery - запрос заказа по ID.
type GetOrderQuery struct {
	OrderID string `json:"order_id" validate:"required"`
}

// GetProductQuery - запрос продукта для страницы checkout'а.
type GetProductQuery struct {
	ProductID string `json:"product_id" validate:"required"`
}

// ============================================
// Response DTOs
// ============================================

// CheckoutSessionDTO - ответ на создание сессии.
type CheckoutSessionDTO struct {
	OrderID     string            `json:"order_id"`
	Provider    string            `json:"provider"`
	SessionID   string            `json:"session_id"`
	CheckoutURL string            `json:"checkout_url,omitempty"`
	FormFields  map[string]string `json:"form_fields,omitempty"` // Redsys self-submitting form
	AmountCents int64             `json:"amount_cents"`
	Currency    string            `json:"currency"`
}

// OrderDTO - представление заказа для API.
type OrderDTO struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"product_id"`
	TipsterID     string     `json:"tipster_id"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	Provider      string     `json:"provider,omitempty"`
	SessionID     string     `json:"session_id,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	IsGuest       bool       `json:"is_guest"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CheckoutStatusDTO - облегчённый статус для поллинга со страницы оплаты.
type CheckoutStatusDTO struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Paid    bool   `json:"paid"`
}

// VerifyPaymentResultDTO - результат verify-on-return.
type VerifyPaymentResultDTO struct {
	Order      OrderDTO `json:"order"`
	Reconciled bool     `json:"reconciled"` // этот вызов выполнил переход в PAID
}

// ProductDTO - представление продукта для страницы checkout'а.
type ProductDTO struct {
	ID          string `json:"id"`
	TipsterID   string `json:"tipster_id"`
	TipsterName string `json:"tipster_name,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Kind        string `json:"kind"`
	PriceCents  int64  `json:"price_cents"`
	Currency    string `json:"currency"`
	Active      bool   `json:"active"`
}
