package dtos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

func TestToOrderDTO(t *testing.T) {
	amount, err := valueobjects.NewMoneyFromCents(2500, valueobjects.EUR)
	require.NoError(t, err)

	order, err := entities.NewOrder("prod-1", "tipster-1", amount, entities.BuyerContact{
		Email: "buyer@example.com",
	}, true)
	require.NoError(t, err)
	require.NoError(t, order.MarkPaid(entities.PaymentProviderStripe, "cs_test_1", "card"))

	dto := ToOrderDTO(order)

	assert.Equal(t, order.ID(), dto.ID)
	assert.Equal(t, "prod-1", dto.ProductID)
	assert.Equal(t, int64(2500), dto.AmountCents)
	assert.Equal(t, "EUR", dto.Currency)
	assert.Equal(t, "PAID", dto.Status)
	assert.Equal(t, "stripe", dto.Provider)
	assert.Equal(t, "cs_test_1", dto.SessionID)
	assert.True(t, dto.IsGuest)
	assert.NotNil(t, dto.PaidAt)
}

func TestToCheckoutStatusDTO(t *testing.T) {
	amount, err := valueobjects.NewMoneyFromCents(500, valueobjects.EUR)
	require.NoError(t, err)

	order, err := entities.NewOrder("prod-1", "tipster-1", amount, entities.BuyerContact{}, true)
	require.NoError(t, err)

	dto := ToCheckoutStatusDTO(order)
	assert.Equal(t, "PENDING", dto.Status)
	assert.False(t, dto.Paid)

	require.NoError(t, order.MarkPaid(entities.PaymentProviderRedsys, "000000000001", "bizum"))
	dto = ToCheckoutStatusDTO(order)
	assert.True(t, dto.Paid)
}

func TestToProductDTO(t *testing.T) {
	price, err := valueobjects.NewMoneyFromCents(999, valueobjects.USD)
	require.NoError(t, err)

	product, err := entities.NewProduct("tipster-1", "Daily Pick", "one pick", entities.ProductKindOneTime, price, "-100")
	require.NoError(t, err)

	tipster, err := entities.NewTipsterProfile("Antia Tips", "42")
	require.NoError(t, err)

	dto := ToProductDTO(product, tipster)
	assert.Equal(t, "Daily Pick", dto.Title)
	assert.Equal(t, "Antia Tips", dto.TipsterName)
	assert.Equal(t, "USD", dto.Currency)

	dto = ToProductDTO(product, nil)
	assert.Empty(t, dto.TipsterName)
}

func TestToSalesSummaryDTO(t *testing.T) {
	dto := ToSalesSummaryDTO("tipster-1", map[string]int64{
		"USD": 10000,
		"EUR": 20000,
	}, 5, 2, 1000)

	assert.Equal(t, int64(5), dto.OrdersPaid)
	assert.Equal(t, int64(2), dto.PendingOrders)
	require.Len(t, dto.Totals, 2)

	// sorted by currency code
	assert.Equal(t, "EUR", dto.Totals[0].Currency)
	assert.Equal(t, int64(20000), dto.Totals[0].GrossCents)
	assert.Equal(t, int64(2000), dto.Totals[0].CommissionCents)
	assert.Equal(t, int64(18000), dto.Totals[0].NetCents)
	assert.Equal(t, "USD", dto.Totals[1].Currency)
}
