// Package checkout - CreateSession use case для старта покупки.
package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/events"
)

// CreateSessionUseCase - use case для создания checkout-сессии.
//
// Сценарий:
// 1. Загрузить продукт, проверить что он продаётся
// 2. Создать pending-заказ со snapshot'ом цены
// 3. Выбрать шлюз по геолокации покупателя
// 4. Создать сессию у шлюза
// 5. Привязать сессию к заказу, записать события
//
// Snapshot цены - ключевой инвариант: изменение цены продукта после
// создания заказа не влияет на сумму к оплате.
type CreateSessionUseCase struct {
	orderRepo   ports.OrderRepository
	productRepo ports.ProductRepository
	selector    ports.GatewaySelector
	outbox      ports.OutboxRepository
	uow         ports.UnitOfWork
	logger      *slog.Logger
}

// NewCreateSessionUseCase создаёт новый use case.
func NewCreateSessionUseCase(
	orderRepo ports.OrderRepository,
	productRepo ports.ProductRepository,
	selector ports.GatewaySelector,
	outbox ports.OutboxRepository,
	uow ports.UnitOfWork,
	logger *slog.Logger,
) *CreateSessionUseCase {
	return &CreateSessionUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		selector:    selector,
		outbox:      outbox,
		uow:         uow,
		logger:      logger,
	}
}

// Execute выполняет создание checkout-сессии.
func (uc *CreateSessionUseCase) Execute(ctx context.Context, cmd dtos.CreateCheckoutSessionCommand) (*dtos.CheckoutSessionDTO, error) {
	// 1. Загружаем продукт
	product, err := uc.productRepo.FindByID(ctx, cmd.ProductID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewDomainError("PRODUCT_NOT_FOUND", "product not found", err)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if err := product.EnsurePurchasable(); err != nil {
		return nil, err
	}

	// 2. Создаём pending-заказ со snapshot'ом цены.
	// Гость - это покупатель без Telegram-идентичности и без email.
	buyer := entities.BuyerContact{
		Email:            cmd.Email,
		Phone:            cmd.Phone,
		TelegramUserID:   cmd.TelegramUserID,
		TelegramUsername: cmd.TelegramUsername,
	}
	isGuest := cmd.Email == "" && cmd.TelegramUserID == ""

	order, err := entities.NewOrder(product.ID(), product.TipsterID(), product.Price(), buyer, isGuest)
	if err != nil {
		return nil, err
	}

	// 3. Выбираем шлюз: испанские IP (и запрос Bizum) идут в Redsys
	gateway, err := uc.selector.Select(ctx, cmd.BuyerIP, cmd.PreferBizum)
	if err != nil {
		return nil, fmt.Errorf("failed to select payment gateway: %w", err)
	}

	// 4. Сохраняем заказ до похода к шлюзу: webhook может прийти
	// раньше, чем мы закончим обработку ответа
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.Insert(txCtx, order); err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return uc.outbox.Save(txCtx, events.NewOrderCreated(
			order.ID(), order.ProductID(), order.TipsterID(), order.Amount(), isGuest,
		))
	})
	if err != nil {
		return nil, err
	}

	// 5. Создаём сессию у шлюза
	session, err := gateway.CreateSession(ctx, ports.CheckoutSessionRequest{
		Order:        order,
		Product:      product,
		SuccessURL:   fmt.Sprintf("%s/checkout/success?session_id={CHECKOUT_SESSION_ID}&order_id=%s", cmd.Origin, order.ID()),
		CancelURL:    fmt.Sprintf("%s/checkout/cancel?order_id=%s", cmd.Origin, order.ID()),
		PreferBizum:  cmd.PreferBizum,
		CustomerHint: cmd.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway session: %w", err)
	}

	// 6. Привязываем сессию к заказу
	if err := order.AttachSession(session.Provider, session.SessionID); err != nil {
		return nil, err
	}
	err = uc.uow.Execute(ctx, func(txCtx context.Context) error {
		if err := uc.orderRepo.AttachSession(txCtx, order); err != nil {
			return fmt.Errorf("failed to attach session to order: %w", err)
		}
		return uc.outbox.Save(txCtx, events.NewCheckoutSessionCreated(
			order.ID(), string(session.Provider), session.SessionID,
		))
	})
	if err != nil {
		return nil, err
	}

	uc.logger.InfoContext(ctx, "checkout session created",
		slog.String("order_id", order.ID()),
		slog.String("product_id", product.ID()),
		slog.String("provider", string(session.Provider)),
		slog.String("session_id", session.SessionID),
	)

	return &dtos.CheckoutSessionDTO{
		OrderID:     order.ID(),
		Provider:    string(session.Provider),
		SessionID:   session.SessionID,
		CheckoutURL: session.CheckoutURL,
		FormFields:  session.FormFields,
		AmountCents: order.Amount().Cents(),
		Currency:    order.Amount().Currency().Code(),
	}, nil
}
