// Package checkout - VerifyPayment use case для verify-on-return.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

// VerifyPaymentUseCase проверяет оплату, когда покупатель вернулся со
// страницы шлюза.
//
// Webhook может опоздать или потеряться, поэтому возврат покупателя -
// самостоятельный путь reconciliation. Источник истины - сам шлюз:
// состояние клиента (query-параметры успеха) не значит ничего.
//
// Сценарий:
// 1. Найти заказ по сессии
// 2. Если уже оплачен - вернуть как есть (webhook успел первым)
// 3. Спросить шлюз о фактическом статусе платежа
// 4. Если оплачен - провести через Settler (CAS решит гонку с webhook)
type VerifyPaymentUseCase struct {
	orderRepo ports.OrderRepository
	selector  ports.GatewaySelector
	settler   *Settler
	logger    *slog.Logger
}

// NewVerifyPaymentUseCase создаёт новый use case.
func NewVerifyPaymentUseCase(
	orderRepo ports.OrderRepository,
	selector ports.GatewaySelector,
	settler *Settler,
	logger *slog.Logger,
) *VerifyPaymentUseCase {
	return &VerifyPaymentUseCase{
		orderRepo: orderRepo,
		selector:  selector,
		settler:   settler,
		logger:    logger,
	}
}

// Execute выполняет проверку оплаты.
func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, query dtos.VerifyPaymentQuery) (*dtos.VerifyPaymentResultDTO, error) {
	// 1. Находим заказ: по сессии либо по ID из query
	order, err := uc.orderRepo.FindByProviderSessionID(ctx, query.SessionID)
	if err != nil {
		if !errors.IsNotFound(err) || query.OrderID == "" {
			return nil, err
		}
		order, err = uc.orderRepo.FindByID(ctx, query.OrderID)
		if err != nil {
			return nil, err
		}
	}

	// 2. Уже оплачен: webhook выиграл, просто отдаём состояние
	if order.IsPaid() {
		dto := dtos.ToOrderDTO(order)
		return &dtos.VerifyPaymentResultDTO{Order: dto, Reconciled: false}, nil
	}

	// 3. Активная проверка у шлюза
	gateway, err := uc.selector.ByProvider(order.Provider())
	if err != nil {
		return nil, err
	}
	status, err := gateway.CheckPaymentStatus(ctx, query.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment status: %w", err)
	}

	// Сессия обязана ссылаться на этот же заказ. Несовпадение значит,
	// что в query подставили чужой session_id: не проводим.
	if status.OrderID != "" && status.OrderID != order.ID() {
		uc.logger.WarnContext(ctx, "verify-on-return: session belongs to another order",
			slog.String("order_id", order.ID()),
			slog.String("session_order_id", status.OrderID),
			slog.String("session_id", query.SessionID),
		)
		dto := dtos.ToOrderDTO(order)
		return &dtos.VerifyPaymentResultDTO{Order: dto, Reconciled: false}, nil
	}

	if !status.Paid {
		uc.logger.InfoContext(ctx, "verify-on-return: payment not confirmed by gateway",
			slog.String("order_id", order.ID()),
			slog.String("session_id", query.SessionID),
		)
		dto := dtos.ToOrderDTO(order)
		return &dtos.VerifyPaymentResultDTO{Order: dto, Reconciled: false}, nil
	}

	// 4. Шлюз подтвердил оплату - проводим
	res, err := uc.settler.SettlePaid(ctx, order.ID(), order.Provider(), query.SessionID, status.PaymentMethod)
	if err != nil {
		return nil, err
	}

	dto := dtos.ToOrderDTO(res.Order)
	return &dtos.VerifyPaymentResultDTO{Order: dto, Reconciled: res.Won}, nil
}
