// Package handlers - Checkout HTTP handlers.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/common"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
)

// ============================================
// Use Case Interfaces
// ============================================

// CreateSessionUseCase - интерфейс для старта checkout'а.
type CreateSessionUseCase interface {
	Execute(ctx context.Context, cmd dtos.CreateCheckoutSessionCommand) (*dtos.CheckoutSessionDTO, error)
}

// GetStatusUseCase - интерфейс для поллинга статуса оплаты.
type GetStatusUseCase interface {
	Execute(ctx context.Context, query dtos.GetCheckoutStatusQuery) (*dtos.CheckoutStatusDTO, error)
}

// VerifyPaymentUseCase - интерфейс для verify-on-return сверки.
type VerifyPaymentUseCase interface {
	Execute(ctx context.Context, query dtos.VerifyPaymentQuery) (*dtos.VerifyPaymentResultDTO, error)
}

// CompletePaymentUseCase - интерфейс для ручного завершения оплаты.
type CompletePaymentUseCase interface {
	Execute(ctx context.Context, cmd dtos.CompletePaymentCommand) (*dtos.OrderDTO, error)
}

// SimulatePaymentUseCase - интерфейс для тестового завершения оплаты.
type SimulatePaymentUseCase interface {
	Execute(ctx context.Context, cmd dtos.SimulatePaymentCommand) (*dtos.OrderDTO, error)
}

// GetOrderUseCase - интерфейс для получения заказа.
type GetOrderUseCase interface {
	Execute(ctx context.Context, query dtos.GetOrderQuery) (*dtos.OrderDTO, error)
}

// GetProductUseCase - интерфейс для получения продукта.
type GetProductUseCase interface {
	Execute(ctx context.Context, query dtos.GetProductQuery) (*dtos.ProductDTO, error)
}

// ============================================
// Checkout Handler
// ============================================

// CheckoutHandler обрабатывает HTTP запросы checkout-флоу.
type CheckoutHandler struct {
	createSession   CreateSessionUseCase
	getStatus       GetStatusUseCase
	verifyPayment   VerifyPaymentUseCase
	completePayment CompletePaymentUseCase
	simulatePayment SimulatePaymentUseCase
	getOrder        GetOrderUseCase
	getProduct      GetProductUseCase
	// База для success/cancel URL, когда клиент не прислал origin.
	defaultOrigin string
	// Тестовые endpoint'ы включаются только в dev/staging окружении.
	enableTestEndpoints bool
}

// NewCheckoutHandler создаёт новый CheckoutHandler.
func NewCheckoutHandler(
	createSession CreateSessionUseCase,
	getStatus GetStatusUseCase,
	verifyPayment VerifyPaymentUseCase,
	completePayment CompletePaymentUseCase,
	simulatePayment SimulatePaymentUseCase,
	getOrder GetOrderUseCase,
	getProduct GetProductUseCase,
	defaultOrigin string,
	enableTestEndpoints bool,
) *CheckoutHandler {
	return &CheckoutHandler{
		createSession:       createSession,
		getStatus:           getStatus,
		verifyPayment:       verifyPayment,
		completePayment:     completePayment,
		simulatePayment:     simulatePayment,
		getOrder:            getOrder,
		getProduct:          getProduct,
		defaultOrigin:       defaultOrigin,
		enableTestEndpoints: enableTestEndpoints,
	}
}

// ============================================
// Request DTOs
// ============================================

// CreateSessionRequest - запрос на создание checkout-сессии.
//
// @Description Create checkout session request body
type CreateSessionRequest struct {
	ProductID        string `json:"product_id" binding:"required,min=1,max=64"`
	Email            string `json:"email" binding:"omitempty,email"`
	Phone            string `json:"phone" binding:"omitempty,e164"`
	TelegramUserID   string `json:"telegram_user_id" binding:"omitempty,max=64"`
	TelegramUsername string `json:"telegram_username" binding:"omitempty,max=64"`
	PreferBizum      bool   `json:"prefer_bizum"`
	Origin           string `json:"origin" binding:"omitempty,url"`
}

// CompletePaymentRequest - запрос на ручное завершение оплаты.
//
// @Description Complete payment request body
type CompletePaymentRequest struct {
	OrderID       string `json:"order_id" binding:"required,min=1,max=64"`
	PaymentMethod string `json:"payment_method" binding:"omitempty,oneof=card bizum manual"`
}

// SessionIDParam - параметр ID сессии из URL.
type SessionIDParam struct {
	SessionID string `uri:"sessionId" binding:"required,min=1"`
}

// OrderIDParam - параметр ID заказа из URL.
type OrderIDParam struct {
	OrderID string `uri:"orderId" binding:"required,min=1,max=64"`
}

// ProductIDParam - параметр ID продукта из URL.
type ProductIDParam struct {
	ProductID string `uri:"productId" binding:"required,min=1,max=64"`
}

// VerifyPaymentParams - параметры verify-on-return из query string.
type VerifyPaymentParams struct {
	SessionID string `form:"session_id" binding:"required,min=1"`
	OrderID   string `form:"order_id" binding:"omitempty,max=64"`
}

// ============================================
// HTTP Handlers
// ============================================

// CreateSession создаёт checkout-сессию у выбранного шлюза.
//
// Шлюз выбирается по geo-эвристике: испанский IP или prefer_bizum
// уходят в Redsys, всё остальное - в Stripe.
//
// @Summary Create a checkout session
// @Description Start checkout for a product, routing the buyer to Stripe or Redsys
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body CreateSessionRequest true "Checkout data"
// @Success 201 {object} common.APIResponse{data=dtos.CheckoutSessionDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse "Product not found"
// @Failure 422 {object} common.APIResponse "Product not active"
// @Failure 502 {object} common.APIResponse "Gateway failure"
// @Router /api/v1/checkout/session [post]
func (h *CheckoutHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if !BindJSON(c, &req) {
		return
	}

	origin := req.Origin
	if origin == "" {
		origin = h.defaultOrigin
	}

	cmd := dtos.CreateCheckoutSessionCommand{
		ProductID:        req.ProductID,
		Email:            req.Email,
		Phone:            req.Phone,
		TelegramUserID:   req.TelegramUserID,
		TelegramUsername: req.TelegramUsername,
		PreferBizum:      req.PreferBizum,
		Origin:           origin,
		BuyerIP:          c.ClientIP(),
	}

	result, err := h.createSession.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusCreated, result)
}

// GetStatus возвращает статус заказа по ID сессии шлюза.
//
// Используется страницей оплаты для поллинга, поэтому отвечает
// только по локальному состоянию, без похода в шлюз.
//
// @Summary Get checkout status by session ID
// @Description Poll order status by gateway session ID (local state only)
// @Tags Checkout
// @Produce json
// @Param sessionId path string true "Gateway session ID"
// @Success 200 {object} common.APIResponse{data=dtos.CheckoutStatusDTO}
// @Failure 404 {object} common.APIResponse
// @Router /api/v1/checkout/status/{sessionId} [get]
func (h *CheckoutHandler) GetStatus(c *gin.Context) {
	var params SessionIDParam
	if !BindURI(c, &params) {
		return
	}

	query := dtos.GetCheckoutStatusQuery{SessionID: params.SessionID}

	result, err := h.getStatus.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// VerifyPayment сверяет оплату при возврате покупателя со страницы шлюза.
//
// Если webhook ещё не дошёл, этот вызов сам запрашивает шлюз и
// проводит оплату (reconciled=true в ответе).
//
// @Summary Verify payment on return from gateway
// @Description Reconcile order state with the gateway after buyer returns
// @Tags Checkout
// @Produce json
// @Param session_id query string true "Gateway session ID"
// @Param order_id query string false "Order ID fallback"
// @Success 200 {object} common.APIResponse{data=dtos.VerifyPaymentResultDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 502 {object} common.APIResponse "Gateway failure"
// @Router /api/v1/checkout/verify [get]
func (h *CheckoutHandler) VerifyPayment(c *gin.Context) {
	var params VerifyPaymentParams
	if !BindQuery(c, &params) {
		return
	}

	query := dtos.VerifyPaymentQuery{
		SessionID: params.SessionID,
		OrderID:   params.OrderID,
	}

	result, err := h.verifyPayment.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// CompletePayment вручную проводит оплату заказа.
//
// Операторский endpoint для случаев, когда шлюз подтвердил оплату
// вне обычного флоу (телефонная оплата, ручная сверка).
//
// @Summary Manually complete a payment
// @Description Settle an order as paid outside the normal gateway flow
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body CompletePaymentRequest true "Completion data"
// @Success 200 {object} common.APIResponse{data=dtos.OrderDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "Order not pending"
// @Router /api/v1/checkout/complete-payment [post]
func (h *CheckoutHandler) CompletePayment(c *gin.Context) {
	var req CompletePaymentRequest
	if !BindJSON(c, &req) {
		return
	}

	cmd := dtos.CompletePaymentCommand{
		OrderID:       req.OrderID,
		PaymentMethod: req.PaymentMethod,
	}

	result, err := h.completePayment.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// SimulatePayment проводит оплату без участия шлюза.
//
// Доступен только при включённых тестовых endpoint'ах.
//
// @Summary Simulate a successful payment (test only)
// @Description Settle an order as paid without a gateway, for test environments
// @Tags Checkout
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} common.APIResponse{data=dtos.OrderDTO}
// @Failure 403 {object} common.APIResponse "Test endpoints disabled"
// @Failure 404 {object} common.APIResponse
// @Failure 422 {object} common.APIResponse "Order not pending"
// @Router /api/v1/checkout/simulate-payment/{orderId} [post]
func (h *CheckoutHandler) SimulatePayment(c *gin.Context) {
	if !h.enableTestEndpoints {
		common.ForbiddenResponse(c, "Test endpoints are disabled in this environment")
		return
	}

	var params OrderIDParam
	if !BindURI(c, &params) {
		return
	}

	cmd := dtos.SimulatePaymentCommand{OrderID: params.OrderID}

	result, err := h.simulatePayment.Execute(c.Request.Context(), cmd)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// GetOrder возвращает заказ по ID.
//
// @Summary Get order by ID
// @Description Get order details by ID
// @Tags Checkout
// @Produce json
// @Param orderId path string true "Order ID"
// @Success 200 {object} common.APIResponse{data=dtos.OrderDTO}
// @Failure 404 {object} common.APIResponse
// @Router /api/v1/checkout/order/{orderId} [get]
func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	var params OrderIDParam
	if !BindURI(c, &params) {
		return
	}

	query := dtos.GetOrderQuery{OrderID: params.OrderID}

	result, err := h.getOrder.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}

// GetProduct возвращает продукт для страницы checkout'а.
//
// @Summary Get product by ID
// @Description Get product details for the checkout page
// @Tags Checkout
// @Produce json
// @Param productId path string true "Product ID"
// @Success 200 {object} common.APIResponse{data=dtos.ProductDTO}
// @Failure 404 {object} common.APIResponse
// @Router /api/v1/checkout/product/{productId} [get]
func (h *CheckoutHandler) GetProduct(c *gin.Context) {
	var params ProductIDParam
	if !BindURI(c, &params) {
		return
	}

	query := dtos.GetProductQuery{ProductID: params.ProductID}

	result, err := h.getProduct.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
