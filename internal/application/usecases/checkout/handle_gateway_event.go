// Package checkout - HandleGatewayEvent use case для webhook'ов шлюзов.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

// Дедуп-записи живут дольше окна повторных доставок любого шлюза.
const processedEventTTL = 72 * time.Hour

// WebhookOutcome - результат обработки webhook'а для HTTP-слоя.
//
// Контракт со шлюзами: не-200 возвращается ТОЛЬКО при ошибке подписи.
// Всё остальное (дубликат, неизвестный заказ, проигранная гонка) - 200,
// иначе шлюз будет бесконечно ретраить событие, которое мы не можем
// обработать иначе.
type WebhookOutcome struct {
	Acknowledged bool   // true = отвечаем 200
	Applied      bool   // этот webhook реально изменил заказ
	OrderID      string // для логов, может быть пустым
}

// HandleGatewayEventUseCase обрабатывает события платёжных шлюзов.
//
// Сценарий:
// 1. Проверить подпись и нормализовать payload (адаптер шлюза)
// 2. Дедупликация по ID события (Redis, первый барьер)
// 3. Найти заказ по metadata или ссылке на сессию
// 4. Провести оплату/истечение через Settler (второй барьер - CAS)
type HandleGatewayEventUseCase struct {
	selector  ports.GatewaySelector
	orderRepo ports.OrderRepository
	processed ports.ProcessedEventStore
	settler   *Settler
	logger    *slog.Logger
}

// NewHandleGatewayEventUseCase создаёт новый use case.
func NewHandleGatewayEventUseCase(
	selector ports.GatewaySelector,
	orderRepo ports.OrderRepository,
	processed ports.ProcessedEventStore,
	settler *Settler,
	logger *slog.Logger,
) *HandleGatewayEventUseCase {
	return &HandleGatewayEventUseCase{
		selector:  selector,
		orderRepo: orderRepo,
		processed: processed,
		settler:   settler,
		logger:    logger,
	}
}

// Execute обрабатывает сырой webhook от шлюза provider.
//
// Возвращает error только при ошибке подписи или инфраструктурном сбое,
// который имеет смысл ретраить со стороны шлюза.
func (uc *HandleGatewayEventUseCase) Execute(ctx context.Context, providerName string, payload []byte, headers map[string]string) (*WebhookOutcome, error) {
	gateway, err := uc.selector.ByProvider(entities.PaymentProvider(providerName))
	if err != nil {
		return nil, err
	}

	// 1. Подпись + нормализация. Ошибка подписи уходит наверх как есть:
	// HTTP-слой превратит её в 400.
	event, err := gateway.ParseWebhook(ctx, payload, headers)
	if err != nil {
		return nil, err
	}

	if event.Kind == ports.GatewayEventIgnored {
		return &WebhookOutcome{Acknowledged: true}, nil
	}

	// 2. Дедупликация повторных доставок. Сбой Redis не блокирует
	// обработку: CAS в БД всё равно гарантирует идемпотентность.
	//
	// Метка ставится до settlement, поэтому каждый ретраебл-выход ниже
	// обязан её снять: иначе ретрай шлюза срежется на метке, а заказ
	// останется PENDING до прихода reaper'а. marked запоминает, есть ли
	// что снимать.
	marked := false
	if event.EventID != "" {
		first, err := uc.processed.MarkProcessed(ctx, dedupKey(event), processedEventTTL)
		if err != nil {
			uc.logger.WarnContext(ctx, "event dedup store unavailable, relying on conditional update",
				slog.String("event_id", event.EventID),
				slog.Any("error", err),
			)
		} else if !first {
			uc.logger.InfoContext(ctx, "duplicate gateway event ignored",
				slog.String("event_id", event.EventID),
				slog.String("provider", providerName),
			)
			return &WebhookOutcome{Acknowledged: true}, nil
		} else {
			marked = true
		}
	}

	// 3. Находим заказ: сначала по нашему ID из metadata, потом по
	// ссылке на сессию
	orderID := event.OrderID
	if orderID == "" && event.SessionID != "" {
		order, err := uc.orderRepo.FindByProviderSessionID(ctx, event.SessionID)
		if err != nil {
			if errors.IsNotFound(err) {
				// Неизвестный заказ: 200 + warning, ничего не мутируем.
				// Ретраи шлюза здесь не помогут.
				uc.logger.WarnContext(ctx, "gateway event for unknown order",
					slog.String("provider", providerName),
					slog.String("session_id", event.SessionID),
					slog.String("event_id", event.EventID),
				)
				return &WebhookOutcome{Acknowledged: true}, nil
			}
			uc.releaseDedup(ctx, event, marked)
			return nil, fmt.Errorf("failed to find order by session: %w", err)
		}
		orderID = order.ID()
	}
	if orderID == "" {
		uc.logger.WarnContext(ctx, "gateway event without order reference",
			slog.String("provider", providerName),
			slog.String("event_id", event.EventID),
		)
		return &WebhookOutcome{Acknowledged: true}, nil
	}

	// 4. Проводим через единый hook
	switch event.Kind {
	case ports.GatewayEventPaymentSucceeded:
		res, err := uc.settler.SettlePaid(ctx, orderID, event.Provider, event.SessionID, event.PaymentMethod)
		if err != nil {
			if errors.IsNotFound(err) {
				uc.logger.WarnContext(ctx, "gateway event for unknown order",
					slog.String("provider", providerName),
					slog.String("order_id", orderID),
				)
				return &WebhookOutcome{Acknowledged: true, OrderID: orderID}, nil
			}
			uc.releaseDedup(ctx, event, marked)
			return nil, err
		}
		return &WebhookOutcome{Acknowledged: true, Applied: res.Won, OrderID: orderID}, nil

	case ports.GatewayEventSessionExpired:
		res, err := uc.settler.SettleExpired(ctx, orderID)
		if err != nil {
			if errors.IsNotFound(err) {
				return &WebhookOutcome{Acknowledged: true, OrderID: orderID}, nil
			}
			uc.releaseDedup(ctx, event, marked)
			return nil, err
		}
		return &WebhookOutcome{Acknowledged: true, Applied: res.Won, OrderID: orderID}, nil

	default:
		return &WebhookOutcome{Acknowledged: true, OrderID: orderID}, nil
	}
}

// releaseDedup снимает дедуп-метку перед возвратом ретраебл-ошибки.
// Best-effort: само снятие может упасть только вместе с Redis, а значит
// MarkProcessed на ретрае тоже упадёт и обработка пойдёт мимо барьера.
func (uc *HandleGatewayEventUseCase) releaseDedup(ctx context.Context, event *ports.GatewayEvent, marked bool) {
	if !marked {
		return
	}
	if err := uc.processed.Unmark(ctx, dedupKey(event)); err != nil {
		uc.logger.WarnContext(ctx, "failed to release event dedup mark",
			slog.String("event_id", event.EventID),
			slog.Any("error", err),
		)
	}
}

func dedupKey(event *ports.GatewayEvent) string {
	return fmt.Sprintf("%s:%s", event.Provider, event.EventID)
}
