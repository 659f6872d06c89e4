package checkout

import (
	"context"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
)

// GetOrderUseCase - запрос заказа по ID.
type GetOrderUseCase struct {
	orderRepo ports.OrderRepository
}

// NewGetOrderUseCase создаёт новый use case.
func NewGetOrderUseCase(orderRepo ports.OrderRepository) *GetOrderUseCase {
	return &GetOrderUseCase{orderRepo: orderRepo}
}

// Execute возвращает заказ.
func (uc *GetOrderUseCase) Execute(ctx context.Context, query dtos.GetOrderQuery) (*dtos.OrderDTO, error) {
	order, err := uc.orderRepo.FindByID(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}

	dto := dtos.ToOrderDTO(order)
	return &dto, nil
}
