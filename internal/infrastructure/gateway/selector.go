// Package gateway выбирает платёжный шлюз для нового checkout'а.
package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domainErrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
)

// spanishCountryCode - покупатели из Испании платят через Redsys (карта/Bizum).
const spanishCountryCode = "ES"

// GeoSelector маршрутизирует checkout по стране покупателя.
//
// Правила:
//   - явный запрос Bizum всегда идёт в Redsys;
//   - испанский IP идёт в Redsys, если Redsys зарегистрирован;
//   - всё остальное (и любой сбой геолокации) идёт в Stripe.
type GeoSelector struct {
	gateways   map[entities.PaymentProvider]ports.PaymentGateway
	geolocator ports.Geolocator
	logger     *slog.Logger
}

var _ ports.GatewaySelector = (*GeoSelector)(nil)

// NewGeoSelector создаёт селектор поверх зарегистрированных шлюзов.
func NewGeoSelector(geolocator ports.Geolocator, logger *slog.Logger, gateways ...ports.PaymentGateway) *GeoSelector {
	registry := make(map[entities.PaymentProvider]ports.PaymentGateway, len(gateways))
	for _, gw := range gateways {
		registry[gw.Provider()] = gw
	}
	return &GeoSelector{
		gateways:   registry,
		geolocator: geolocator,
		logger:     logger,
	}
}

// Select возвращает шлюз для данного запроса.
func (s *GeoSelector) Select(ctx context.Context, buyerIP string, preferBizum bool) (ports.PaymentGateway, error) {
	if preferBizum {
		return s.ByProvider(entities.PaymentProviderRedsys)
	}

	if redsys, ok := s.gateways[entities.PaymentProviderRedsys]; ok && buyerIP != "" {
		info, err := s.geolocator.Locate(ctx, buyerIP)
		if err != nil {
			// Сбой геолокации не должен ломать checkout
			s.logger.WarnContext(ctx, "geolocation unavailable, using default gateway",
				slog.String("buyer_ip", buyerIP))
		} else if info.CountryCode == spanishCountryCode {
			return redsys, nil
		}
	}

	return s.ByProvider(entities.PaymentProviderStripe)
}

// ByProvider возвращает шлюз по идентификатору.
func (s *GeoSelector) ByProvider(provider entities.PaymentProvider) (ports.PaymentGateway, error) {
	gw, ok := s.gateways[provider]
	if !ok {
		return nil, domainErrors.NewDomainError(
			"GATEWAY_NOT_CONFIGURED",
			fmt.Sprintf("payment gateway %q is not configured", provider),
			nil,
		)
	}
	return gw, nil
}
