// Package dtos - Mappers для конвертации domain entities в DTOs.
//
// Pattern: Mapper/Converter
// Отделяет domain representation от API representation
package dtos

import (
	"sort"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
)

// ============================================
// Order Mappers
// ============================================

// ToOrderDTO конвертирует domain entity Order в DTO.
func ToOrderDTO(order *entities.Order) OrderDTO {
	return OrderDTO{
		ID:            order.ID(),
		ProductID:     order.ProductID(),
		TipsterID:     order.TipsterID(),
		AmountCents:   order.Amount().Cents(),
		Currency:      order.Amount().Currency().Code(),
		Status:        string(order.Status()),
		Provider:      string(order.Provider()),
		SessionID:     order.ProviderSessionID(),
		PaymentMethod: order.PaymentMethod(),
		IsGuest:       order.IsGuest(),
		PaidAt:        order.PaidAt(),
		CreatedAt:     order.CreatedAt(),
		UpdatedAt:     order.UpdatedAt(),
	}
}

// ToOrderDTOList конвертирует список orders.
func ToOrderDTOList(orders []*entities.Order) []OrderDTO {
	result := make([]OrderDTO, len(orders))
	for i, order := range orders {
		result[i] = ToOrderDTO(order)
	}
	return result
}

// ToCheckoutStatusDTO строит облегчённый статус для поллинга.
func ToCheckoutStatusDTO(order *entities.Order) CheckoutStatusDTO {
	return CheckoutStatusDTO{
		OrderID: order.ID(),
		Status:  string(order.Status()),
		Paid:    order.IsPaid(),
	}
}

// ============================================
// Product Mappers
// ============================================

// ToProductDTO конвертирует продукт с опциональным именем типстера.
func ToProductDTO(product *entities.Product, tipster *entities.TipsterProfile) ProductDTO {
	dto := ProductDTO{
		ID:          product.ID(),
		TipsterID:   product.TipsterID(),
		Title:       product.Title(),
		Description: product.Description(),
		Kind:        string(product.Kind()),
		PriceCents:  product.Price().Cents(),
		Currency:    product.Price().Currency().Code(),
		Active:      product.IsActive(),
	}
	if tipster != nil {
		dto.TipsterName = tipster.DisplayName()
	}
	return dto
}

// ============================================
// Sales Summary Mappers
// ============================================

// ToSalesSummaryDTO строит итоги продаж с учётом комиссии платформы.
func ToSalesSummaryDTO(tipsterID string, totalsByCCY map[string]int64, ordersPaid, pendingOrders int64, commissionBasisPts int64) SalesSummaryDTO {
	totals := make([]CurrencyTotal, 0, len(totalsByCCY))
	for ccy, gross := range totalsByCCY {
		commission := gross * commissionBasisPts / 10000
		totals = append(totals, CurrencyTotal{
			Currency:        ccy,
			GrossCents:      gross,
			CommissionCents: commission,
			NetCents:        gross - commission,
		})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Currency < totals[j].Currency })
	return SalesSummaryDTO{
		TipsterID:     tipsterID,
		OrdersPaid:    ordersPaid,
		PendingOrders: pendingOrders,
		Totals:        totals,
	}
}
