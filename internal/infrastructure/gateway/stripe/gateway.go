// Package stripe реализует ports.PaymentGateway поверх Stripe Checkout.
//
// Используется REST API Stripe (form-encoded), без официального SDK:
// нам нужны только checkout sessions и проверка webhook-подписи.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domainErrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

const (
	defaultBaseURL   = "https://api.stripe.com"
	defaultTolerance = 5 * time.Minute
)

// Config - настройки Stripe шлюза.
type Config struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string        // переопределяется в тестах
	Tolerance     time.Duration // допустимый возраст webhook-подписи
}

// Gateway - адаптер Stripe Checkout.
type Gateway struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// Compile-time проверка реализации интерфейса
var _ ports.PaymentGateway = (*Gateway)(nil)

// NewGateway создаёт Stripe шлюз с retry-политикой для сетевых сбоев.
func NewGateway(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Tolerance == 0 {
		cfg.Tolerance = defaultTolerance
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 15 * time.Second
	rc.Logger = nil

	return &Gateway{
		cfg:    cfg,
		client: rc.StandardClient(),
		logger: logger,
		now:    time.Now,
	}
}

// Provider возвращает идентификатор шлюза.
func (g *Gateway) Provider() entities.PaymentProvider {
	return entities.PaymentProviderStripe
}

// checkoutSessionResponse - подмножество ответа Stripe, которое мы читаем.
type checkoutSessionResponse struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	Status        string            `json:"status"`
	Metadata      map[string]string `json:"metadata"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateSession создаёт Stripe Checkout Session для pending-заказа.
func (g *Gateway) CreateSession(ctx context.Context, req ports.CheckoutSessionRequest) (*ports.CheckoutSession, error) {
	order := req.Order
	product := req.Product

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(order.Amount().Currency().Code()))
	form.Set("line_items[0][price_data][product_data][name]", product.Title())
	if product.Description() != "" {
		form.Set("line_items[0][price_data][product_data][description]", product.Description())
	}
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(order.Amount().Cents(), 10))
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.CustomerHint != "" {
		form.Set("customer_email", req.CustomerHint)
	}

	// metadata позволяет webhook'у найти заказ без session lookup
	buyer := order.Buyer()
	form.Set("metadata[orderId]", order.ID())
	form.Set("metadata[productId]", order.ProductID())
	form.Set("metadata[tipsterId]", order.TipsterID())
	form.Set("metadata[telegramUserId]", buyer.TelegramUserID)
	form.Set("metadata[telegramUsername]", buyer.TelegramUsername)
	form.Set("metadata[isGuest]", strconv.FormatBool(order.IsGuest()))

	var session checkoutSessionResponse
	if err := g.postForm(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "stripe checkout session created",
		slog.String("order_id", order.ID()),
		slog.String("session_id", session.ID),
	)

	return &ports.CheckoutSession{
		Provider:    entities.PaymentProviderStripe,
		SessionID:   session.ID,
		CheckoutURL: session.URL,
	}, nil
}

// CheckPaymentStatus запрашивает состояние сессии напрямую у Stripe.
// Используется на verify-on-return, когда webhook мог не дойти.
func (g *Gateway) CheckPaymentStatus(ctx context.Context, sessionID string) (*ports.PaymentStatus, error) {
	var session checkoutSessionResponse
	if err := g.get(ctx, "/v1/checkout/sessions/"+url.PathEscape(sessionID), &session); err != nil {
		return nil, err
	}

	return &ports.PaymentStatus{
		Paid:          session.PaymentStatus == "paid",
		SessionID:     session.ID,
		OrderID:       session.Metadata["orderId"],
		PaymentMethod: "card",
	}, nil
}

// webhookEvent - подмножество Stripe Event.
type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object checkoutSessionResponse `json:"object"`
	} `json:"data"`
}

// ParseWebhook проверяет Stripe-Signature и нормализует событие.
func (g *Gateway) ParseWebhook(ctx context.Context, payload []byte, headers map[string]string) (*ports.GatewayEvent, error) {
	if g.cfg.WebhookSecret != "" {
		sigHeader := headers["Stripe-Signature"]
		if err := verifySignature(payload, sigHeader, g.cfg.WebhookSecret, g.cfg.Tolerance, g.now()); err != nil {
			return nil, domainErrors.NewGatewayError("stripe", "verify_signature", false, err)
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domainErrors.NewGatewayError("stripe", "verify_signature", false,
			fmt.Errorf("malformed event payload: %w", err))
	}

	normalized := &ports.GatewayEvent{
		EventID:   event.ID,
		Provider:  entities.PaymentProviderStripe,
		SessionID: event.Data.Object.ID,
		OrderID:   event.Data.Object.Metadata["orderId"],
	}

	switch event.Type {
	case "checkout.session.completed":
		normalized.Kind = ports.GatewayEventPaymentSucceeded
		normalized.PaymentMethod = "card"
	case "checkout.session.expired":
		normalized.Kind = ports.GatewayEventSessionExpired
	default:
		normalized.Kind = ports.GatewayEventIgnored
	}

	return normalized, nil
}

func (g *Gateway) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return domainErrors.NewGatewayError("stripe", "create_session", false, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return g.do(req, "create_session", out)
}

func (g *Gateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+path, nil)
	if err != nil {
		return domainErrors.NewGatewayError("stripe", "retrieve_session", false, err)
	}
	req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	return g.do(req, "retrieve_session", out)
}

func (g *Gateway) do(req *http.Request, operation string, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return domainErrors.NewGatewayError("stripe", operation, true, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainErrors.NewGatewayError("stripe", operation, true, err)
	}

	if resp.StatusCode >= 400 {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return domainErrors.NewGatewayError("stripe", operation, retryable,
			fmt.Errorf("stripe responded %d: %s", resp.StatusCode, apiErr.Error.Message))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domainErrors.NewGatewayError("stripe", operation, false,
			fmt.Errorf("malformed response: %w", err))
	}
	return nil
}
