package gateway

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
)

type stubGateway struct {
	provider entities.PaymentProvider
}

func (s *stubGateway) Provider() entities.PaymentProvider { return s.provider }

func (s *stubGateway) CreateSession(ctx context.Context, req ports.CheckoutSessionRequest) (*ports.CheckoutSession, error) {
	return &ports.CheckoutSession{Provider: s.provider}, nil
}

func (s *stubGateway) ParseWebhook(ctx context.Context, payload []byte, headers map[string]string) (*ports.GatewayEvent, error) {
	return &ports.GatewayEvent{Provider: s.provider}, nil
}

func (s *stubGateway) CheckPaymentStatus(ctx context.Context, sessionID string) (*ports.PaymentStatus, error) {
	return &ports.PaymentStatus{}, nil
}

type stubGeolocator struct {
	country string
	err     error
}

func (s *stubGeolocator) Locate(ctx context.Context, ip string) (ports.GeoInfo, error) {
	if s.err != nil {
		return ports.GeoInfo{}, s.err
	}
	return ports.GeoInfo{CountryCode: s.country}, nil
}

func newTestSelector(country string, geoErr error) *GeoSelector {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGeoSelector(
		&stubGeolocator{country: country, err: geoErr},
		logger,
		&stubGateway{provider: entities.PaymentProviderStripe},
		&stubGateway{provider: entities.PaymentProviderRedsys},
	)
}

func TestSelect_SpanishIPGoesToRedsys(t *testing.T) {
	selector := newTestSelector("ES", nil)

	gw, err := selector.Select(context.Background(), "81.40.10.20", false)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentProviderRedsys, gw.Provider())
}

func TestSelect_ForeignIPGoesToStripe(t *testing.T) {
	selector := newTestSelector("DE", nil)

	gw, err := selector.Select(context.Background(), "85.10.20.30", false)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentProviderStripe, gw.Provider())
}

func TestSelect_BizumAlwaysRedsys(t *testing.T) {
	selector := newTestSelector("DE", nil)

	gw, err := selector.Select(context.Background(), "85.10.20.30", true)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentProviderRedsys, gw.Provider())
}

func TestSelect_GeoFailureFallsBackToStripe(t *testing.T) {
	selector := newTestSelector("", assert.AnError)

	gw, err := selector.Select(context.Background(), "85.10.20.30", false)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentProviderStripe, gw.Provider())
}

func TestSelect_EmptyIPGoesToStripe(t *testing.T) {
	selector := newTestSelector("ES", nil)

	gw, err := selector.Select(context.Background(), "", false)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentProviderStripe, gw.Provider())
}

func TestByProvider_Unknown(t *testing.T) {
	selector := newTestSelector("ES", nil)

	_, err := selector.ByProvider(entities.PaymentProvider("paypal"))
	require.Error(t, err)
}

func TestSelect_NoRedsysConfigured(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	selector := NewGeoSelector(
		&stubGeolocator{country: "ES"},
		logger,
		&stubGateway{provider: entities.PaymentProviderStripe},
	)

	gw, err := selector.Select(context.Background(), "81.40.10.20", false)
	require.NoError(t, err)
	assert.Equal(t, entities.PaymentProviderStripe, gw.Provider())
}
