package checkout

import (
	"context"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/dtos"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

// GetProductUseCase - продукт для страницы checkout'а.
// Возвращает продукт вместе с именем типстера для витрины.
type GetProductUseCase struct {
	productRepo ports.ProductRepository
	tipsterRepo ports.TipsterRepository
}

// NewGetProductUseCase создаёт новый use case.
func NewGetProductUseCase(productRepo ports.ProductRepository, tipsterRepo ports.TipsterRepository) *GetProductUseCase {
	return &GetProductUseCase{
		productRepo: productRepo,
		tipsterRepo: tipsterRepo,
	}
}

// Execute возвращает продукт для витрины checkout'а.
func (uc *GetProductUseCase) Execute(ctx context.Context, query dtos.GetProductQuery) (*dtos.ProductDTO, error) {
	product, err := uc.productRepo.FindByID(ctx, query.ProductID)
	if err != nil {
		return nil, err
	}

	// Имя типстера - украшение витрины, его отсутствие не ломает ответ
	tipster, err := uc.tipsterRepo.FindByID(ctx, product.TipsterID())
	if err != nil && !errors.IsNotFound(err) {
		return nil, err
	}

	dto := dtos.ToProductDTO(product, tipster)
	return &dto, nil
}
