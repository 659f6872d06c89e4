// Package checkout - SimulatePayment use case для тестовых окружений.
package checkout

import (
	"context"
	"log/slog"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

// SimulatePaymentUseCase - симуляция успешной оплаты без похода к шлюзу.
//
// Включается только флагом конфигурации тестовых endpoint'ов; HTTP-слой
// не регистрирует маршрут в production. Проходит через тот же Settler,
// чтобы e2e-тесты покрывали настоящий путь reconciliation.
type SimulatePaymentUseCase struct {
	orderRepo ports.OrderRepository
	settler   *Settler
	logger    *slog.Logger
}

// NewSimulatePaymentUseCase создаёт новый use case.
func NewSimulatePaymentUseCase(orderRepo ports.OrderRepository, settler *Settler, logger *slog.Logger) *SimulatePaymentUseCase {
	return &SimulatePaymentUseCase{
		orderRepo: orderRepo,
		settler:   settler,
		logger:    logger,
	}
}

// Execute симулирует успешную оплату заказа.
func (uc *SimulatePaymentUseCase) Execute(ctx context.Context, cmd dtos.SimulatePaymentCommand) (*dtos.OrderDTO, error) {
	order, err := uc.orderRepo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPending() && !order.IsPaid() {
		return nil, errors.ErrOrderNotPending
	}

	res, err := uc.settler.SettlePaid(ctx, cmd.OrderID, entities.PaymentProviderStripeSimulated, order.ProviderSessionID(), "card_simulated")
	if err != nil {
		return nil, err
	}

	uc.logger.InfoContext(ctx, "payment simulated",
		slog.String("order_id", cmd.OrderID),
		slog.Bool("applied", res.Won),
	)

	dto := dtos.ToOrderDTO(res.Order)
	return &dto, nil
}
