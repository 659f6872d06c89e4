// Package order - TipsterSalesSummary use case.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

const dateLayout = "2006-01-02"

// TipsterSalesSummaryUseCase - итоги продаж типстера за период с
// разбивкой по валютам и расчётом комиссии платформы.
type TipsterSalesSummaryUseCase struct {
	orderRepo   ports.OrderRepository
	tipsterRepo ports.TipsterRepository
}

// NewTipsterSalesSummaryUseCase создаёт новый use case.
func NewTipsterSalesSummaryUseCase(orderRepo ports.OrderRepository, tipsterRepo ports.TipsterRepository) *TipsterSalesSummaryUseCase {
	return &TipsterSalesSummaryUseCase{
		orderRepo:   orderRepo,
		tipsterRepo: tipsterRepo,
	}
}

// Execute считает итоги продаж.
// Пустой период означает "за всё время".
func (uc *TipsterSalesSummaryUseCase) Execute(ctx context.Context, query dtos.TipsterSalesSummaryQuery) (*dtos.SalesSummaryDTO, error) {
	tipster, err := uc.tipsterRepo.FindByID(ctx, query.TipsterID)
	if err != nil {
		return nil, err
	}

	from := time.Time{}
	if query.FromDate != "" {
		from, err = time.Parse(dateLayout, query.FromDate)
		if err != nil {
			return nil, errors.ValidationError{Field: "from_date", Message: "expected YYYY-MM-DD"}
		}
	}
	to := time.Now()
	if query.ToDate != "" {
		parsed, err := time.Parse(dateLayout, query.ToDate)
		if err != nil {
			return nil, errors.ValidationError{Field: "to_date", Message: "expected YYYY-MM-DD"}
		}
		// Включительно до конца дня
		to = parsed.Add(24*time.Hour - time.Nanosecond)
	}
	if !from.IsZero() && to.Before(from) {
		return nil, errors.ValidationError{Field: "to_date", Message: "period end before period start"}
	}

	totals, err := uc.orderRepo.AggregateSales(ctx, query.TipsterID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}

	dto := dtos.ToSalesSummaryDTO(query.TipsterID, totals.TotalsByCCY, totals.OrdersPaid, totals.PendingOrders, tipster.CommissionBasisPts())
	dto.FromDate = query.FromDate
	dto.ToDate = query.ToDate
	return &dto, nil
}
