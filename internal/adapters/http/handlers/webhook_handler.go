// Package handlers - Webhook HTTP handlers для платёжных шлюзов.
package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/common"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/usecases/checkout"
)

// Webhook'и шлюзов небольшие; лимит страхует от мусорных POST'ов.
const maxWebhookBodySize = 1 << 20 // 1MB

// ============================================
// Use Case Interfaces
// ============================================

// HandleGatewayEventUseCase - интерфейс для обработки webhook'ов шлюза.
type HandleGatewayEventUseCase interface {
	Execute(ctx context.Context, providerName string, payload []byte, headers map[string]string) (*checkout.WebhookOutcome, error)
}

// ============================================
// Webhook Handler
// ============================================

// WebhookHandler принимает webhook'и платёжных шлюзов.
//
// Контракт со шлюзами: не-200 возвращается ТОЛЬКО при ошибке подписи
// или инфраструктурном сбое, который шлюзу имеет смысл ретраить.
// Дубликаты, неизвестные заказы и проигранные гонки подтверждаются 200,
// иначе шлюз будет бесконечно повторять событие.
type WebhookHandler struct {
	handleEvent HandleGatewayEventUseCase
}

// NewWebhookHandler создаёт новый WebhookHandler.
func NewWebhookHandler(handleEvent HandleGatewayEventUseCase) *WebhookHandler {
	return &WebhookHandler{handleEvent: handleEvent}
}

// ============================================
// Request/Response DTOs
// ============================================

// ProviderParam - имя шлюза из URL.
type ProviderParam struct {
	Provider string `uri:"provider" binding:"required,payment_provider"`
}

// WebhookAckDTO - подтверждение приёма webhook'а.
type WebhookAckDTO struct {
	Received bool   `json:"received"`
	Applied  bool   `json:"applied"`
	OrderID  string `json:"order_id,omitempty"`
}

// ============================================
// HTTP Handlers
// ============================================

// HandleWebhook обрабатывает webhook от платёжного шлюза.
//
// Тело читается сырым: и Stripe (JSON + Stripe-Signature header),
// и Redsys (form-encoded Ds_* поля) проверяют подпись по точным байтам.
//
// @Summary Receive a payment gateway webhook
// @Description Process a raw gateway event (Stripe JSON or Redsys form post)
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param provider path string true "Gateway name" Enums(stripe, redsys)
// @Success 200 {object} common.APIResponse{data=WebhookAckDTO}
// @Failure 400 {object} common.APIResponse "Signature verification failed"
// @Failure 500 {object} common.APIResponse
// @Router /api/v1/checkout/webhook/{provider} [post]
func (h *WebhookHandler) HandleWebhook(c *gin.Context) {
	var params ProviderParam
	if !BindURI(c, &params) {
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize))
	if err != nil {
		common.BadRequestResponse(c, "Failed to read webhook body")
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for name := range c.Request.Header {
		headers[name] = c.GetHeader(name)
	}

	outcome, err := h.handleEvent.Execute(c.Request.Context(), params.Provider, payload, headers)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, WebhookAckDTO{
		Received: outcome.Acknowledged,
		Applied:  outcome.Applied,
		OrderID:  outcome.OrderID,
	})
}
