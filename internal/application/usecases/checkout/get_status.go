// Package checkout - запросы чтения для страницы оплаты.
package checkout

import (
	"context"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
)

// GetStatusUseCase - статус заказа по сессии шлюза.
// Страница оплаты поллит этот endpoint в ожидании webhook'а.
type GetStatusUseCase struct {
	orderRepo ports.OrderRepository
}

// NewGetStatusUseCase создаёт новый use case.
func NewGetStatusUseCase(orderRepo ports.OrderRepository) *GetStatusUseCase {
	return &GetStatusUseCase{orderRepo: orderRepo}
}

// Execute возвращает облегчённый статус заказа.
func (uc *GetStatusUseCase) Execute(ctx context.Context, query dtos.GetCheckoutStatusQuery) (*dtos.CheckoutStatusDTO, error) {
	order, err := uc.orderRepo.FindByProviderSessionID(ctx, query.SessionID)
	if err != nil {
		return nil, err
	}

	dto := dtos.ToCheckoutStatusDTO(order)
	return &dto, nil
}
