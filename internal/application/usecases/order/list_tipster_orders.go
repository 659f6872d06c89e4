// Package order - use cases кабинета типстера.
package order

import (
	"context"
	"fmt"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

const defaultPageLimit = 20

// ListTipsterOrdersUseCase - список заказов типстера с фильтрацией.
type ListTipsterOrdersUseCase struct {
	orderRepo ports.OrderRepository
}

// NewListTipsterOrdersUseCase создаёт новый use case.
func NewListTipsterOrdersUseCase(orderRepo ports.OrderRepository) *ListTipsterOrdersUseCase {
	return &ListTipsterOrdersUseCase{orderRepo: orderRepo}
}

// Execute возвращает страницу заказов типстера, новые первыми.
func (uc *ListTipsterOrdersUseCase) Execute(ctx context.Context, query dtos.ListTipsterOrdersQuery) (*dtos.OrderListDTO, error) {
	filter := ports.OrderFilter{ProductID: query.ProductID}
	if query.Status != nil {
		status := entities.OrderStatus(*query.Status)
		if !status.IsValid() {
			return nil, errors.ValidationError{Field: "status", Message: "unknown order status"}
		}
		filter.Status = &status
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	orders, err := uc.orderRepo.FindByTipster(ctx, query.TipsterID, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	total, err := uc.orderRepo.CountByTipster(ctx, query.TipsterID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	return &dtos.OrderListDTO{
		Orders: dtos.ToOrderDTOList(orders),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}, nil
}
