// Package ports - PaymentGateway абстрагирует платёжные шлюзы.
//
// SOLID Principles:
// - DIP: use cases не знают про Stripe/Redsys API
// - OCP: новый шлюз = новая реализация, use cases не меняются
package ports

import (
	"context"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
)

// CheckoutSessionRequest - входные данные для создания платёжной сессии.
type CheckoutSessionRequest struct {
	Order        *entities.Order
	Product      *entities.Product
	SuccessURL   string
	CancelURL    string
	PreferBizum  bool   // для Redsys: ограничить оплату Bizum
	CustomerHint string // email покупателя, если известен
}

// CheckoutSession - результат создания сессии у шлюза.
type CheckoutSession struct {
	Provider    entities.PaymentProvider
	SessionID   string                   // ссылка шлюза (Stripe session id / Redsys order number)
	CheckoutURL string                   // куда редиректить покупателя
	FormFields  map[string]string        // для Redsys: поля self-submitting формы
}

// GatewayEvent - нормализованное событие от платёжного шлюза.
// Webhook-адаптеры каждого шлюза приводят свои форматы к этому виду.
type GatewayEvent struct {
	EventID       string                   // уникальный ID события у шлюза (для дедупликации)
	Provider      entities.PaymentProvider
	Kind          GatewayEventKind
	SessionID     string                   // ссылка на сессию шлюза
	OrderID       string                   // наш ID заказа из metadata, если шлюз его вернул
	PaymentMethod string
}

// GatewayEventKind - тип события шлюза после нормализации.
type GatewayEventKind string

const (
	GatewayEventPaymentSucceeded GatewayEventKind = "payment_succeeded"
	GatewayEventSessionExpired   GatewayEventKind = "session_expired"
	GatewayEventIgnored          GatewayEventKind = "ignored" // известное, но неинтересное событие
)

// PaymentStatus - результат активной проверки статуса платежа у шлюза.
type PaymentStatus struct {
	Paid          bool
	SessionID     string
	OrderID       string
	PaymentMethod string
}

// PaymentGateway определяет контракт платёжного шлюза.
type PaymentGateway interface {
	// Provider возвращает идентификатор шлюза.
	Provider() entities.PaymentProvider

	// CreateSession создаёт платёжную сессию для pending-заказа.
	CreateSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error)

	// ParseWebhook проверяет подпись и нормализует тело webhook'а.
	// Ошибка подписи - единственный случай, когда HTTP-обработчик
	// отвечает не-200.
	ParseWebhook(ctx context.Context, payload []byte, headers map[string]string) (*GatewayEvent, error)

	// CheckPaymentStatus активно запрашивает статус у шлюза.
	// Используется на verify-on-return, когда webhook мог не дойти.
	CheckPaymentStatus(ctx context.Context, sessionID string) (*PaymentStatus, error)
}

// GatewaySelector выбирает шлюз для нового checkout'а.
// Выбор зависит от страны покупателя: испанские карты идут через Redsys.
type GatewaySelector interface {
	// Select возвращает шлюз для данного запроса.
	Select(ctx context.Context, buyerIP string, preferBizum bool) (PaymentGateway, error)

	// ByProvider возвращает шлюз по идентификатору.
	ByProvider(provider entities.PaymentProvider) (PaymentGateway, error)
}
