// Package checkout - use cases жизненного цикла покупки.
//
// Все пути reconciliation (webhook, verify-on-return, ручное завершение,
// симуляция) сходятся в Settler. Он выполняет условный переход
// PENDING -> PAID и ровно один раз запускает побочные эффекты продажи.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/events"
)

// SettlementResult - итог попытки провести оплату.
type SettlementResult struct {
	Order *entities.Order
	// Won = true если именно этот вызов выполнил переход PENDING -> PAID.
	// Проигравшие пути получают Won = false и актуальный заказ.
	Won bool
}

// Settler - единая точка проведения успешной оплаты.
//
// Инварианты:
// - Переход статуса и запись в outbox атомарны (одна БД-транзакция)
// - Побочные эффекты (уведомления, выдача доступа) выполняются ПОСЛЕ
//   commit'а и только победителем
// - Ошибки побочных эффектов логируются и не откатывают оплату
type Settler struct {
	orderRepo   ports.OrderRepository
	productRepo ports.ProductRepository
	tipsterRepo ports.TipsterRepository
	outbox      ports.OutboxRepository
	notifier    ports.NotificationSink
	provisioner ports.AccessProvisioner
	uow         ports.UnitOfWork
	logger      *slog.Logger
}

// NewSettler создаёт Settler.
func NewSettler(
	orderRepo ports.OrderRepository,
	productRepo ports.ProductRepository,
	tipsterRepo ports.TipsterRepository,
	outbox ports.OutboxRepository,
	notifier ports.NotificationSink,
	provisioner ports.AccessProvisioner,
	uow ports.UnitOfWork,
	logger *slog.Logger,
) *Settler {
	return &Settler{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		tipsterRepo: tipsterRepo,
		outbox:      outbox,
		notifier:    notifier,
		provisioner: provisioner,
		uow:         uow,
		logger:      logger,
	}
}

// SettlePaid проводит оплату заказа.
//
// Сценарий:
// 1. Загрузить заказ
// 2. В транзакции: условный UPDATE PENDING -> PAID + событие в outbox
// 3. Если победили: выполнить fan-out (уведомления + доступ)
//
// Повторный вызов для уже оплаченного заказа - благополучный no-op.
func (s *Settler) SettlePaid(ctx context.Context, orderID string, provider entities.PaymentProvider, sessionID, paymentMethod string) (*SettlementResult, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Быстрый выход без транзакции: заказ уже в терминальном статусе
	if order.IsPaid() {
		return &SettlementResult{Order: order, Won: false}, nil
	}
	if order.Status() == entities.OrderStatusExpired {
		return nil, errors.NewBusinessRuleViolation(
			"FORWARD_ONLY_STATUS",
			"cannot pay an expired order",
			map[string]interface{}{"orderId": orderID},
		)
	}

	// 1. Применяем переход на entity (валидация провайдера и статуса)
	if err := order.MarkPaid(provider, sessionID, paymentMethod); err != nil {
		if errors.Is(err, errors.ErrOrderAlreadyPaid) {
			return &SettlementResult{Order: order, Won: false}, nil
		}
		return nil, err
	}

	// 2. Условный UPDATE + outbox в одной транзакции
	var won bool
	err = s.uow.Execute(ctx, func(txCtx context.Context) error {
		w, err := s.orderRepo.MarkPaidIfPending(txCtx, order)
		if err != nil {
			return fmt.Errorf("failed to mark order paid: %w", err)
		}
		won = w
		if !won {
			return nil // проиграли гонку, commit пустой транзакции
		}

		event := events.NewOrderPaid(
			order.ID(),
			order.ProductID(),
			order.TipsterID(),
			order.Amount(),
			string(provider),
			paymentMethod,
		)
		if err := s.outbox.Save(txCtx, event); err != nil {
			return fmt.Errorf("failed to save order.paid event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !won {
		// Другой путь reconciliation успел первым. Перечитываем заказ,
		// чтобы вернуть его фактическое состояние.
		fresh, err := s.orderRepo.FindByID(ctx, orderID)
		if err != nil {
			return nil, err
		}
		return &SettlementResult{Order: fresh, Won: false}, nil
	}

	s.logger.InfoContext(ctx, "order paid",
		slog.String("order_id", order.ID()),
		slog.String("provider", string(provider)),
		slog.String("payment_method", paymentMethod),
	)

	// 3. Fan-out победителя. Best-effort: оплата уже зафиксирована.
	s.fanOut(ctx, order)

	return &SettlementResult{Order: order, Won: true}, nil
}

// SettleExpired проводит истечение сессии. Для уже оплаченного заказа
// это no-op: просроченная сессия не трогает успешный платёж.
func (s *Settler) SettleExpired(ctx context.Context, orderID string) (*SettlementResult, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPending() {
		return &SettlementResult{Order: order, Won: false}, nil
	}

	var won bool
	err = s.uow.Execute(ctx, func(txCtx context.Context) error {
		w, err := s.orderRepo.MarkExpiredIfPending(txCtx, orderID)
		if err != nil {
			return fmt.Errorf("failed to mark order expired: %w", err)
		}
		won = w
		if !won {
			return nil
		}
		return s.outbox.Save(txCtx, events.NewOrderExpired(order.ID(), order.ProductID(), string(order.Provider())))
	})
	if err != nil {
		return nil, err
	}

	if won {
		if mErr := order.MarkExpired(); mErr == nil {
			s.logger.InfoContext(ctx, "order expired", slog.String("order_id", orderID))
		}
	}
	return &SettlementResult{Order: order, Won: won}, nil
}

// fanOut выполняет побочные эффекты успешной оплаты.
// Каждый шаг независим: ошибка уведомления не мешает выдаче доступа.
func (s *Settler) fanOut(ctx context.Context, order *entities.Order) {
	product, err := s.productRepo.FindByID(ctx, order.ProductID())
	if err != nil {
		s.logger.ErrorContext(ctx, "fan-out: failed to load product",
			slog.String("order_id", order.ID()),
			slog.String("product_id", order.ProductID()),
			slog.Any("error", err),
		)
		return
	}

	tipster, err := s.tipsterRepo.FindByID(ctx, order.TipsterID())
	if err != nil {
		s.logger.WarnContext(ctx, "fan-out: failed to load tipster profile",
			slog.String("order_id", order.ID()),
			slog.Any("error", err),
		)
		tipster = nil
	}

	if err := s.notifier.NotifySale(ctx, ports.SaleNotification{
		Order:   order,
		Product: product,
		Tipster: tipster,
	}); err != nil {
		s.logger.ErrorContext(ctx, "fan-out: sale notification failed",
			slog.String("order_id", order.ID()),
			slog.Any("error", err),
		)
	} else {
		// Флаг notified пишется после фактической отправки, отдельно
		// от CAS: упавший fan-out не должен числиться выполненным.
		order.MarkNotified()
		if err := s.orderRepo.MarkNotified(ctx, order.ID()); err != nil {
			s.logger.WarnContext(ctx, "fan-out: failed to persist notified flag",
				slog.String("order_id", order.ID()),
				slog.Any("error", err),
			)
		}
	}

	// Выдача доступа только покупателям с Telegram-идентичностью
	if !order.Buyer().HasTelegram() || product.ChannelID() == "" {
		return
	}

	inviteLink, err := s.provisioner.GrantAccess(ctx, order, product)
	if err != nil {
		s.logger.ErrorContext(ctx, "fan-out: access provisioning failed",
			slog.String("order_id", order.ID()),
			slog.Any("error", err),
		)
		return
	}

	if err := s.orderRepo.MarkAccessGranted(ctx, order.ID()); err != nil {
		s.logger.ErrorContext(ctx, "fan-out: failed to persist access grant",
			slog.String("order_id", order.ID()),
			slog.Any("error", err),
		)
		return
	}
	_ = order.GrantAccess()

	if err := s.outbox.Save(ctx, events.NewOrderAccessGranted(order.ID(), product.ID(), product.ChannelID(), inviteLink)); err != nil {
		s.logger.WarnContext(ctx, "fan-out: failed to save access event",
			slog.String("order_id", order.ID()),
			slog.Any("error", err),
		)
	}
}
