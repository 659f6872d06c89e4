// Package redsys реализует ports.PaymentGateway для испанского шлюза Redsys.
//
// Redsys работает через self-submitting форму: мы отдаём браузеру покупателя
// подписанные поля, браузер POST'ит их на endpoint Redsys. Результат приходит
// асинхронно на merchant URL (webhook), redirect на URLOK статус не несёт.
package redsys

import (
	"context"
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domainErrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

const (
	// Endpoint'ы Redsys для redirect-формы
	sandboxURL    = "https://sis-t.redsys.es:25443/sis/realizarPago"
	productionURL = "https://sis.redsys.es/sis/realizarPago"

	signatureVersion = "HMAC_SHA256_V1"

	// DS_MERCHANT_TRANSACTIONTYPE: 0 = авторизация
	transactionTypeAuthorization = "0"

	// DS_MERCHANT_PAYMETHODS: 'z' = Bizum
	payMethodBizum = "z"
)

// Коды валют ISO 4217 (numeric). Наш контракт с Redsys покрывает только EUR,
// заказы в других валютах маршрутизируются на Stripe.
var currencyCodes = map[string]string{
	"EUR": "978",
}

var errStatusLookupUnsupported = errors.New("redsys has no session status endpoint; payment state arrives via merchant notification")

// Config - настройки Redsys шлюза.
type Config struct {
	MerchantCode string
	Terminal     string
	SecretKey    string // base64 merchant key из панели Redsys
	Production   bool
	WebhookURL   string // DS_MERCHANT_MERCHANTURL
}

// Gateway - адаптер Redsys redirect-интеграции.
type Gateway struct {
	cfg      Config
	logger   *slog.Logger
	newTxnID func() string
}

var _ ports.PaymentGateway = (*Gateway)(nil)

// NewGateway создаёт Redsys шлюз.
func NewGateway(cfg Config, logger *slog.Logger) *Gateway {
	if cfg.Terminal == "" {
		cfg.Terminal = "001"
	}
	return &Gateway{
		cfg:      cfg,
		logger:   logger,
		newTxnID: newTransactionID,
	}
}

// Provider возвращает идентификатор шлюза.
func (g *Gateway) Provider() entities.PaymentProvider {
	return entities.PaymentProviderRedsys
}

func (g *Gateway) endpoint() string {
	if g.cfg.Production {
		return productionURL
	}
	return sandboxURL
}

// merchantData связывает транзакцию Redsys с нашим заказом.
type merchantData struct {
	OrderID string `json:"orderId"`
}

// CreateSession строит подписанную redirect-форму для Redsys.
//
// SessionID заказа - это DS_MERCHANT_ORDER (12 символов), по нему же
// Redsys деривирует ключ подписи webhook-уведомления.
func (g *Gateway) CreateSession(ctx context.Context, req ports.CheckoutSessionRequest) (*ports.CheckoutSession, error) {
	order := req.Order

	currency, ok := currencyCodes[order.Amount().Currency().Code()]
	if !ok {
		return nil, domainErrors.NewGatewayError("redsys", "create_session", false,
			fmt.Errorf("unsupported currency %q", order.Amount().Currency().Code()))
	}

	data, err := json.Marshal(merchantData{OrderID: order.ID()})
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "create_session", false, err)
	}

	txnID := g.newTxnID()

	params := map[string]string{
		"DS_MERCHANT_MERCHANTCODE":    g.cfg.MerchantCode,
		"DS_MERCHANT_TERMINAL":        g.cfg.Terminal,
		"DS_MERCHANT_TRANSACTIONTYPE": transactionTypeAuthorization,
		"DS_MERCHANT_AMOUNT":          strconv.FormatInt(order.Amount().Cents(), 10),
		"DS_MERCHANT_CURRENCY":        currency,
		"DS_MERCHANT_ORDER":           txnID,
		"DS_MERCHANT_MERCHANTURL":     g.cfg.WebhookURL,
		"DS_MERCHANT_URLOK":           req.SuccessURL,
		"DS_MERCHANT_URLKO":           req.CancelURL,
		"DS_MERCHANT_MERCHANTDATA":    string(data),
	}
	if req.PreferBizum {
		params["DS_MERCHANT_PAYMETHODS"] = payMethodBizum
	}

	encoded, err := encodeMerchantParameters(params)
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "create_session", false, err)
	}

	signature, err := signParameters(encoded, txnID, g.cfg.SecretKey)
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "create_session", false, err)
	}

	g.logger.InfoContext(ctx, "redsys payment form created",
		slog.String("order_id", order.ID()),
		slog.String("transaction_id", txnID),
		slog.Bool("bizum", req.PreferBizum),
	)

	return &ports.CheckoutSession{
		Provider:    entities.PaymentProviderRedsys,
		SessionID:   txnID,
		CheckoutURL: g.endpoint(),
		FormFields: map[string]string{
			"Ds_SignatureVersion":   signatureVersion,
			"Ds_MerchantParameters": encoded,
			"Ds_Signature":          signature,
		},
	}, nil
}

// notificationParams - декодированные Ds_MerchantParameters уведомления.
type notificationParams struct {
	Order              string `json:"Ds_Order"`
	Response           string `json:"Ds_Response"`
	AuthorisationCode  string `json:"Ds_AuthorisationCode"`
	MerchantData       string `json:"Ds_MerchantData"`
	ProcessedPayMethod string `json:"Ds_ProcessedPayMethod"`
}

// ParseWebhook проверяет подпись merchant-уведомления и нормализует его.
//
// Тело приходит form-encoded: Ds_MerchantParameters + Ds_Signature.
// Код ответа 0-99 означает авторизованный платёж, всё остальное -
// отказ или истёкшую сессию.
func (g *Gateway) ParseWebhook(ctx context.Context, payload []byte, headers map[string]string) (*ports.GatewayEvent, error) {
	values, err := url.ParseQuery(string(payload))
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false,
			fmt.Errorf("malformed notification body: %w", err))
	}

	encoded := values.Get("Ds_MerchantParameters")
	signature := values.Get("Ds_Signature")
	if encoded == "" || signature == "" {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false,
			errors.New("notification missing Ds_MerchantParameters or Ds_Signature"))
	}

	raw, err := decodeBase64Flexible(encoded)
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false,
			fmt.Errorf("malformed Ds_MerchantParameters: %w", err))
	}

	var params notificationParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false,
			fmt.Errorf("malformed notification parameters: %w", err))
	}

	expected, err := signParameters(encoded, params.Order, g.cfg.SecretKey)
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false, err)
	}

	got, err := decodeBase64Flexible(signature)
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false,
			fmt.Errorf("malformed Ds_Signature: %w", err))
	}
	want, _ := base64.StdEncoding.DecodeString(expected)
	if !hmac.Equal(got, want) {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false,
			errors.New("notification signature mismatch"))
	}

	var data merchantData
	if params.MerchantData != "" {
		if err := json.Unmarshal([]byte(params.MerchantData), &data); err != nil {
			g.logger.WarnContext(ctx, "redsys merchant data unreadable",
				slog.String("transaction_id", params.Order))
		}
	}

	event := &ports.GatewayEvent{
		// У Redsys нет event id: транзакция + код ответа достаточно
		// уникальны для дедупликации повторных доставок.
		EventID:   params.Order + ":" + params.Response,
		Provider:  entities.PaymentProviderRedsys,
		SessionID: params.Order,
		OrderID:   data.OrderID,
	}

	code, err := strconv.Atoi(params.Response)
	if err != nil {
		return nil, domainErrors.NewGatewayError("redsys", "verify_signature", false,
			fmt.Errorf("malformed Ds_Response %q", params.Response))
	}

	if code >= 0 && code < 100 {
		event.Kind = ports.GatewayEventPaymentSucceeded
		event.PaymentMethod = "card"
		if params.ProcessedPayMethod == payMethodBizum {
			event.PaymentMethod = "bizum"
		}
	} else {
		event.Kind = ports.GatewayEventSessionExpired
	}

	return event, nil
}

// CheckPaymentStatus не поддерживается: Redsys redirect-интеграция
// сообщает результат только через merchant-уведомление.
func (g *Gateway) CheckPaymentStatus(ctx context.Context, sessionID string) (*ports.PaymentStatus, error) {
	return nil, domainErrors.NewGatewayError("redsys", "retrieve_session", false, errStatusLookupUnsupported)
}

func encodeMerchantParameters(params map[string]string) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeBase64Flexible принимает и standard, и URL-safe base64:
// Redsys использует URL-safe алфавит в уведомлениях.
func decodeBase64Flexible(s string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.URLEncoding.DecodeString(s)
}
