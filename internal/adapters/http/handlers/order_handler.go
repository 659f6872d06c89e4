// Package handlers - Order HTTP handlers для кабинета типстера.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/common"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/middleware"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
)

// ============================================
// Use Case Interfaces
// ============================================

// ListTipsterOrdersUseCase - интерфейс для списка заказов типстера.
type ListTipsterOrdersUseCase interface {
	Execute(ctx context.Context, query dtos.ListTipsterOrdersQuery) (*dtos.OrderListDTO, error)
}

// TipsterSalesSummaryUseCase - интерфейс для итогов продаж.
type TipsterSalesSummaryUseCase interface {
	Execute(ctx context.Context, query dtos.TipsterSalesSummaryQuery) (*dtos.SalesSummaryDTO, error)
}

// ============================================
// Order Handler
// ============================================

// OrderHandler обрабатывает запросы кабинета типстера.
// Все endpoint'ы требуют авторизации: типстер видит только свои заказы.
type OrderHandler struct {
	listOrders   ListTipsterOrdersUseCase
	salesSummary TipsterSalesSummaryUseCase
}

// NewOrderHandler создаёт новый OrderHandler.
func NewOrderHandler(
	listOrders ListTipsterOrdersUseCase,
	salesSummary TipsterSalesSummaryUseCase,
) *OrderHandler {
	return &OrderHandler{
		listOrders:   listOrders,
		salesSummary: salesSummary,
	}
}

// ============================================
// Request DTOs
// ============================================

// ListOrdersParams - фильтры для списка заказов.
type ListOrdersParams struct {
	Status    string `form:"status" binding:"omitempty,order_status"`
	ProductID string `form:"product_id" binding:"omitempty,max=64"`
}

// SalesSummaryParams - период для итогов продаж.
type SalesSummaryParams struct {
	FromDate string `form:"from_date" binding:"omitempty,datetime=2006-01-02"`
	ToDate   string `form:"to_date" binding:"omitempty,datetime=2006-01-02"`
}

// ============================================
// HTTP Handlers
// ============================================

// ListOrders возвращает заказы авторизованного типстера.
//
// @Summary List tipster orders
// @Description Get paginated list of the authenticated tipster's orders
// @Tags Tipster
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20) maximum(100)
// @Param status query string false "Filter by status" Enums(PENDING, PAID, EXPIRED, ACCESS_GRANTED)
// @Param product_id query string false "Filter by product"
// @Success 200 {object} common.APIResponse{data=dtos.OrderListDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Router /api/v1/tipster/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	tipsterID := middleware.GetAuthTipsterID(c)
	if tipsterID == "" {
		common.UnauthorizedResponse(c, "Tipster identity not found in token")
		return
	}

	pagination := ParsePagination(c)

	var filters ListOrdersParams
	if !BindQuery(c, &filters) {
		return
	}

	query := dtos.ListTipsterOrdersQuery{
		TipsterID: tipsterID,
		Offset:    pagination.Offset(),
		Limit:     pagination.PerPage,
	}

	if filters.Status != "" {
		query.Status = &filters.Status
	}
	if filters.ProductID != "" {
		query.ProductID = &filters.ProductID
	}

	result, err := h.listOrders.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.SuccessWithMeta(c, http.StatusOK, result, BuildMeta(pagination, int(result.Total)))
}

// SalesSummary возвращает итоги продаж типстера за период.
//
// @Summary Get tipster sales summary
// @Description Aggregate paid orders of the authenticated tipster over a period
// @Tags Tipster
// @Produce json
// @Security BearerAuth
// @Param from_date query string false "Period start (YYYY-MM-DD)"
// @Param to_date query string false "Period end (YYYY-MM-DD)"
// @Success 200 {object} common.APIResponse{data=dtos.SalesSummaryDTO}
// @Failure 400 {object} common.APIResponse
// @Failure 401 {object} common.APIResponse
// @Failure 404 {object} common.APIResponse "Tipster not found"
// @Router /api/v1/tipster/sales/summary [get]
func (h *OrderHandler) SalesSummary(c *gin.Context) {
	tipsterID := middleware.GetAuthTipsterID(c)
	if tipsterID == "" {
		common.UnauthorizedResponse(c, "Tipster identity not found in token")
		return
	}

	var params SalesSummaryParams
	if !BindQuery(c, &params) {
		return
	}

	query := dtos.TipsterSalesSummaryQuery{
		TipsterID: tipsterID,
		FromDate:  params.FromDate,
		ToDate:    params.ToDate,
	}

	result, err := h.salesSummary.Execute(c.Request.Context(), query)
	if err != nil {
		common.HandleDomainError(c, err)
		return
	}

	common.Success(c, http.StatusOK, result)
}
