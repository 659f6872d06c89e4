// Package checkout - CompletePayment use case для ручного завершения.
package checkout

import (
	"context"
	"log/slog"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
)

// CompletePaymentUseCase - ручное проведение оплаты оператором.
//
// Используется, когда оплата подтверждена вне шлюза (банковский
// перевод, спор решён в пользу покупателя). Идёт через тот же Settler,
// что и webhook: тот же CAS, тот же fan-out, та же идемпотентность.
type CompletePaymentUseCase struct {
	orderRepo ports.OrderRepository
	settler   *Settler
	logger    *slog.Logger
}

// NewCompletePaymentUseCase создаёт новый use case.
func NewCompletePaymentUseCase(orderRepo ports.OrderRepository, settler *Settler, logger *slog.Logger) *CompletePaymentUseCase {
	return &CompletePaymentUseCase{
		orderRepo: orderRepo,
		settler:   settler,
		logger:    logger,
	}
}

// Execute выполняет ручное завершение оплаты.
// Повторный вызов для оплаченного заказа - no-op, возвращает заказ.
func (uc *CompletePaymentUseCase) Execute(ctx context.Context, cmd dtos.CompletePaymentCommand) (*dtos.OrderDTO, error) {
	order, err := uc.orderRepo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	provider := order.Provider()
	if provider == "" {
		// Заказ без сессии шлюза: оплата прошла полностью вне системы
		provider = entities.PaymentProviderStripe
	}

	method := cmd.PaymentMethod
	if method == "" {
		method = "manual"
	}

	res, err := uc.settler.SettlePaid(ctx, cmd.OrderID, provider, order.ProviderSessionID(), method)
	if err != nil {
		return nil, err
	}

	if res.Won {
		uc.logger.InfoContext(ctx, "payment completed manually",
			slog.String("order_id", cmd.OrderID),
			slog.String("payment_method", method),
		)
	}

	dto := dtos.ToOrderDTO(res.Order)
	return &dto, nil
}
