package entities

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

func testAmount(t *testing.T) valueobjects.Money {
	t.Helper()
	m, err := valueobjects.NewMoneyFromCents(2000, valueobjects.EUR)
	require.NoError(t, err)
	return m
}

func newPendingOrder(t *testing.T) *Order {
	t.Helper()
	order, err := NewOrder("prod-1", "tipster-1", testAmount(t), BuyerContact{
		Email:          "buyer@example.com",
		TelegramUserID: "123456",
	}, false)
	require.NoError(t, err)
	return order
}

func TestNewOrder(t *testing.T) {
	t.Run("creates pending order with snapshot", func(t *testing.T) {
		order := newPendingOrder(t)

		assert.Equal(t, OrderStatusPending, order.Status())
		assert.Equal(t, "prod-1", order.ProductID())
		assert.Equal(t, "tipster-1", order.TipsterID())
		assert.Equal(t, int64(2000), order.Amount().Cents())
		assert.True(t, order.Buyer().HasTelegram())
		assert.Nil(t, order.PaidAt())
		assert.False(t, order.Notified())
	})

	t.Run("rejects empty product id", func(t *testing.T) {
		_, err := NewOrder("", "tipster-1", testAmount(t), BuyerContact{}, true)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("rejects empty tipster id", func(t *testing.T) {
		_, err := NewOrder("prod-1", "", testAmount(t), BuyerContact{}, true)
		assert.True(t, errors.IsValidation(err))
	})

	t.Run("rejects zero amount", func(t *testing.T) {
		zero, err := valueobjects.NewMoneyFromCents(0, valueobjects.EUR)
		require.NoError(t, err)

		_, err = NewOrder("prod-1", "tipster-1", zero, BuyerContact{}, true)
		assert.True(t, errors.IsBusinessRuleViolation(err))
	})
}

func TestOrder_MarkPaid(t *testing.T) {
	t.Run("pending to paid", func(t *testing.T) {
		order := newPendingOrder(t)

		err := order.MarkPaid(PaymentProviderStripe, "cs_test_abc", "card")
		require.NoError(t, err)

		assert.Equal(t, OrderStatusPaid, order.Status())
		assert.Equal(t, PaymentProviderStripe, order.Provider())
		assert.Equal(t, "cs_test_abc", order.ProviderSessionID())
		assert.Equal(t, "card", order.PaymentMethod())
		require.NotNil(t, order.PaidAt())
	})

	t.Run("second pay is rejected as already paid", func(t *testing.T) {
		order := newPendingOrder(t)
		require.NoError(t, order.MarkPaid(PaymentProviderStripe, "cs_1", "card"))

		err := order.MarkPaid(PaymentProviderStripe, "cs_2", "card")
		assert.ErrorIs(t, err, errors.ErrOrderAlreadyPaid)
		assert.Equal(t, "cs_1", order.ProviderSessionID(), "provider reference must not change")
	})

	t.Run("expired order cannot become paid", func(t *testing.T) {
		order := newPendingOrder(t)
		require.NoError(t, order.MarkExpired())

		err := order.MarkPaid(PaymentProviderStripe, "cs_1", "card")
		assert.True(t, errors.IsBusinessRuleViolation(err))
		assert.Equal(t, OrderStatusExpired, order.Status())
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		order := newPendingOrder(t)

		err := order.MarkPaid(PaymentProvider("paypal"), "x", "card")
		assert.ErrorIs(t, err, errors.ErrInvalidPaymentProvider)
		assert.Equal(t, OrderStatusPending, order.Status())
	})

	t.Run("empty session id keeps existing reference", func(t *testing.T) {
		order := newPendingOrder(t)
		require.NoError(t, order.AttachSession(PaymentProviderRedsys, "000000123456"))

		require.NoError(t, order.MarkPaid(PaymentProviderRedsys, "", "bizum"))
		assert.Equal(t, "000000123456", order.ProviderSessionID())
	})
}

func TestOrder_MarkExpired(t *testing.T) {
	t.Run("pending to expired", func(t *testing.T) {
		order := newPendingOrder(t)

		require.NoError(t, order.MarkExpired())
		assert.Equal(t, OrderStatusExpired, order.Status())
	})

	t.Run("expiring twice is a no-op", func(t *testing.T) {
		order := newPendingOrder(t)
		require.NoError(t, order.MarkExpired())
		require.NoError(t, order.MarkExpired())
	})

	t.Run("paid order cannot expire", func(t *testing.T) {
		order := newPendingOrder(t)
		require.NoError(t, order.MarkPaid(PaymentProviderStripe, "cs_1", "card"))

		err := order.MarkExpired()
		assert.True(t, errors.IsBusinessRuleViolation(err))
		assert.Equal(t, OrderStatusPaid, order.Status())
	})
}

func TestOrder_GrantAccess(t *testing.T) {
	t.Run("paid to access granted", func(t *testing.T) {
		order := newPendingOrder(t)
		require.NoError(t, order.MarkPaid(PaymentProviderStripe, "cs_1", "card"))

		require.NoError(t, order.GrantAccess())
		assert.Equal(t, OrderStatusAccessGranted, order.Status())
		assert.True(t, order.IsPaid())
	})

	t.Run("pending order has no access to grant", func(t *testing.T) {
		order := newPendingOrder(t)

		err := order.GrantAccess()
		assert.ErrorIs(t, err, errors.ErrOrderNotPaid)
	})

	t.Run("granting twice is a no-op", func(t *testing.T) {
		order := newPendingOrder(t)
		require.NoError(t, order.MarkPaid(PaymentProviderStripe, "cs_1", "card"))
		require.NoError(t, order.GrantAccess())
		require.NoError(t, order.GrantAccess())
	})
}

func TestOrder_AttachSession(t *testing.T) {
	order := newPendingOrder(t)

	require.NoError(t, order.AttachSession(PaymentProviderStripe, "cs_test_1"))
	assert.Equal(t, "cs_test_1", order.ProviderSessionID())

	require.NoError(t, order.MarkPaid(PaymentProviderStripe, "cs_test_1", "card"))
	err := order.AttachSession(PaymentProviderStripe, "cs_test_2")
	assert.ErrorIs(t, err, errors.ErrOrderNotPending)
}

func TestOrder_CanTransitionTo(t *testing.T) {
	pending := newPendingOrder(t)
	assert.True(t, pending.CanTransitionTo(OrderStatusPaid))
	assert.True(t, pending.CanTransitionTo(OrderStatusExpired))
	assert.False(t, pending.CanTransitionTo(OrderStatusAccessGranted))
	assert.False(t, pending.CanTransitionTo(OrderStatusPending))

	paid := newPendingOrder(t)
	require.NoError(t, paid.MarkPaid(PaymentProviderStripe, "cs_1", "card"))
	assert.True(t, paid.CanTransitionTo(OrderStatusAccessGranted))
	assert.False(t, paid.CanTransitionTo(OrderStatusPending))
	assert.False(t, paid.CanTransitionTo(OrderStatusExpired))
}

func TestNewOrderID(t *testing.T) {
	before := time.Now().Unix()
	id := NewOrderID()

	require.Len(t, id, 24)

	seconds, err := strconv.ParseInt(id[:8], 16, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, seconds, before)
	assert.LessOrEqual(t, seconds, time.Now().Unix())

	// random tail must differ between calls
	assert.NotEqual(t, id, NewOrderID())
}

func TestReconstructOrder(t *testing.T) {
	now := time.Now()
	paidAt := now.Add(-time.Minute)

	order, err := ReconstructOrder(
		"abc123", "prod-1", "tipster-1",
		testAmount(t),
		BuyerContact{Email: "b@example.com"},
		true,
		OrderStatusPaid,
		PaymentProviderRedsys,
		"000000123456", "bizum",
		true,
		&paidAt,
		now.Add(-time.Hour), now,
	)
	require.NoError(t, err)

	assert.Equal(t, "abc123", order.ID())
	assert.True(t, order.IsPaid())
	assert.True(t, order.Notified())
	assert.True(t, order.IsGuest())

	_, err = ReconstructOrder(
		"abc123", "prod-1", "tipster-1",
		testAmount(t), BuyerContact{}, false,
		OrderStatus("CANCELLED"),
		PaymentProviderStripe, "", "", false, nil, now, now,
	)
	assert.ErrorIs(t, err, errors.ErrInvalidOrderStatus)
}
