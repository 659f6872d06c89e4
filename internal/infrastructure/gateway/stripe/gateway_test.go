package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domainErrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOrderAndProduct(t *testing.T) (*entities.Order, *entities.Product) {
	t.Helper()

	price, err := valueobjects.NewMoneyFromCents(2500, valueobjects.MustNewCurrency("EUR"))
	require.NoError(t, err)

	product, err := entities.NewProduct("tipster-1", "VIP Picks", "Daily football tips", entities.ProductKindOneTime, price, "-100500")
	require.NoError(t, err)

	buyer := entities.BuyerContact{Email: "buyer@example.com", TelegramUserID: "777"}
	order, err := entities.NewOrder(product.ID(), product.TipsterID(), price, buyer, false)
	require.NoError(t, err)

	return order, product
}

func TestCreateSession_SendsCheckoutForm(t *testing.T) {
	order, product := testOrderAndProduct(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "eur", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "2500", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "VIP Picks", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, order.ID(), r.PostForm.Get("metadata[orderId]"))
		assert.Equal(t, "777", r.PostForm.Get("metadata[telegramUserId]"))
		assert.Equal(t, "buyer@example.com", r.PostForm.Get("customer_email"))
		assert.Contains(t, r.PostForm.Get("success_url"), "{CHECKOUT_SESSION_ID}")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_42","url":"https://checkout.stripe.com/c/pay/cs_test_42"}`)
	}))
	defer server.Close()

	gw := NewGateway(Config{APIKey: "sk_test_123", BaseURL: server.URL}, testLogger())

	session, err := gw.CreateSession(context.Background(), ports.CheckoutSessionRequest{
		Order:        order,
		Product:      product,
		SuccessURL:   "https://shop.example/checkout/success?session_id={CHECKOUT_SESSION_ID}&order_id=" + order.ID(),
		CancelURL:    "https://shop.example/checkout/cancel?order_id=" + order.ID(),
		CustomerHint: "buyer@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, entities.PaymentProviderStripe, session.Provider)
	assert.Equal(t, "cs_test_42", session.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_42", session.CheckoutURL)
}

func TestCreateSession_APIErrorIsGatewayError(t *testing.T) {
	order, product := testOrderAndProduct(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"type":"card_error","message":"Your card was declined."}}`)
	}))
	defer server.Close()

	gw := NewGateway(Config{APIKey: "sk_test_123", BaseURL: server.URL}, testLogger())

	_, err := gw.CreateSession(context.Background(), ports.CheckoutSessionRequest{
		Order:      order,
		Product:    product,
		SuccessURL: "https://shop.example/ok",
		CancelURL:  "https://shop.example/ko",
	})
	require.Error(t, err)
	assert.True(t, domainErrors.IsGatewayError(err))
	assert.False(t, domainErrors.IsRetryableGatewayError(err))
}

func TestCheckPaymentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_42","payment_status":"paid","metadata":{"orderId":"ord-1"}}`)
	}))
	defer server.Close()

	gw := NewGateway(Config{APIKey: "sk_test_123", BaseURL: server.URL}, testLogger())

	status, err := gw.CheckPaymentStatus(context.Background(), "cs_test_42")
	require.NoError(t, err)
	assert.True(t, status.Paid)
	assert.Equal(t, "ord-1", status.OrderID)
	assert.Equal(t, "card", status.PaymentMethod)
}

func TestCheckPaymentStatus_Unpaid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_42","payment_status":"unpaid"}`)
	}))
	defer server.Close()

	gw := NewGateway(Config{APIKey: "sk_test_123", BaseURL: server.URL}, testLogger())

	status, err := gw.CheckPaymentStatus(context.Background(), "cs_test_42")
	require.NoError(t, err)
	assert.False(t, status.Paid)
}

func webhookPayload(t *testing.T, eventType, sessionID, orderID string) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":   "evt_test_1",
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":       sessionID,
				"metadata": map[string]string{"orderId": orderID},
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func TestParseWebhook_CompletedSession(t *testing.T) {
	gw := NewGateway(Config{WebhookSecret: "whsec_test"}, testLogger())

	payload := webhookPayload(t, "checkout.session.completed", "cs_test_42", "ord-1")
	headers := map[string]string{
		"Stripe-Signature": signPayload(payload, "whsec_test", time.Now()),
	}

	event, err := gw.ParseWebhook(context.Background(), payload, headers)
	require.NoError(t, err)

	assert.Equal(t, ports.GatewayEventPaymentSucceeded, event.Kind)
	assert.Equal(t, "evt_test_1", event.EventID)
	assert.Equal(t, "cs_test_42", event.SessionID)
	assert.Equal(t, "ord-1", event.OrderID)
	assert.Equal(t, "card", event.PaymentMethod)
}

func TestParseWebhook_ExpiredSession(t *testing.T) {
	gw := NewGateway(Config{WebhookSecret: "whsec_test"}, testLogger())

	payload := webhookPayload(t, "checkout.session.expired", "cs_test_42", "ord-1")
	headers := map[string]string{
		"Stripe-Signature": signPayload(payload, "whsec_test", time.Now()),
	}

	event, err := gw.ParseWebhook(context.Background(), payload, headers)
	require.NoError(t, err)
	assert.Equal(t, ports.GatewayEventSessionExpired, event.Kind)
}

func TestParseWebhook_UnknownEventIgnored(t *testing.T) {
	gw := NewGateway(Config{WebhookSecret: "whsec_test"}, testLogger())

	payload := webhookPayload(t, "invoice.paid", "cs_test_42", "")
	headers := map[string]string{
		"Stripe-Signature": signPayload(payload, "whsec_test", time.Now()),
	}

	event, err := gw.ParseWebhook(context.Background(), payload, headers)
	require.NoError(t, err)
	assert.Equal(t, ports.GatewayEventIgnored, event.Kind)
}

func TestParseWebhook_BadSignature(t *testing.T) {
	gw := NewGateway(Config{WebhookSecret: "whsec_test"}, testLogger())

	payload := webhookPayload(t, "checkout.session.completed", "cs_test_42", "ord-1")
	headers := map[string]string{
		"Stripe-Signature": signPayload(payload, "whsec_other", time.Now()),
	}

	_, err := gw.ParseWebhook(context.Background(), payload, headers)
	require.Error(t, err)
	assert.True(t, domainErrors.IsGatewayError(err))
	assert.False(t, domainErrors.IsRetryableGatewayError(err))
}

func TestParseWebhook_StaleTimestampRejected(t *testing.T) {
	gw := NewGateway(Config{WebhookSecret: "whsec_test"}, testLogger())

	payload := webhookPayload(t, "checkout.session.completed", "cs_test_42", "ord-1")
	headers := map[string]string{
		"Stripe-Signature": signPayload(payload, "whsec_test", time.Now().Add(-time.Hour)),
	}

	_, err := gw.ParseWebhook(context.Background(), payload, headers)
	require.Error(t, err)
}

func TestParseWebhook_MissingHeader(t *testing.T) {
	gw := NewGateway(Config{WebhookSecret: "whsec_test"}, testLogger())

	payload := webhookPayload(t, "checkout.session.completed", "cs_test_42", "ord-1")

	_, err := gw.ParseWebhook(context.Background(), payload, map[string]string{})
	require.Error(t, err)
}

func TestParseWebhook_NoSecretSkipsVerification(t *testing.T) {
	// Без настроенного секрета подпись не проверяется (локальная разработка)
	gw := NewGateway(Config{}, testLogger())

	payload := webhookPayload(t, "checkout.session.completed", "cs_test_42", "ord-1")

	event, err := gw.ParseWebhook(context.Background(), payload, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, ports.GatewayEventPaymentSucceeded, event.Kind)
}
