// Package dtos - Order DTOs для кабинета типстера.
package dtos

// ============================================
// Queries (Read операции)
// ============================================

// ListTipsterOrdersQuery - запрос списка заказов типстера.
type ListTipsterOrdersQuery struct {
	TipsterID string  `json:"tipster_id" validate:"required"`
	Status    *string `json:"status,omitempty" validate:"omitempty,oneof=PENDING PAID EXPIRED ACCESS_GRANTED"`
	ProductID *string `json:"product_id,omitempty"`
	Offset    int     `json:"offset" validate:"min=0"`
	Limit     int     `json:"limit" validate:"min=1,max=100"`
}

// TipsterSalesSummaryQuery - запрос итогов продаж за период.
type TipsterSalesSummaryQuery struct {
	TipsterID string `json:"tipster_id" validate:"required"`
	FromDate  string `json:"from_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ToDate    string `json:"to_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// ============================================
// Response DTOs
// ============================================

// OrderListDTO - страница заказов типстера.
type OrderListDTO struct {
	Orders []OrderDTO `json:"orders"`
	Total  int64      `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
}

// SalesSummaryDTO - итоги продаж типстера.
type SalesSummaryDTO struct {
	TipsterID     string          `json:"tipster_id"`
	OrdersPaid    int64           `json:"orders_paid"`
	PendingOrders int64           `json:"pending_orders"`
	Totals        []CurrencyTotal `json:"totals"`
	FromDate      string          `json:"from_date,omitempty"`
	ToDate        string          `json:"to_date,omitempty"`
}

// CurrencyTotal - сумма продаж в одной валюте.
type CurrencyTotal struct {
	Currency        string `json:"currency"`
	GrossCents      int64  `json:"gross_cents"`
	CommissionCents int64  `json:"commission_cents"`
	NetCents        int64  `json:"net_cents"`
}
