// Package geolocation определяет страну покупателя по IP.
// Используется при выборе платёжного шлюза: испанский трафик идёт в Redsys.
package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
)

const defaultBaseURL = "http://ip-api.com"

// defaultCountry используется, когда IP определить нельзя: локальные адреса,
// недоступность сервиса. Основная аудитория площадки испанская.
const defaultCountry = "ES"

// Client - клиент ip-api.com.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.Geolocator = (*Client)(nil)

// NewClient создаёт geolocation клиент.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 1 * time.Second
	rc.HTTPClient.Timeout = 3 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL: baseURL,
		client:  rc.StandardClient(),
		logger:  logger,
	}
}

type lookupResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
}

// Locate возвращает страну для IP адреса.
//
// Ошибки lookup'а не фатальны для checkout'а: возвращается страна
// по умолчанию, заказ уйдёт на шлюз по умолчанию.
func (c *Client) Locate(ctx context.Context, ip string) (ports.GeoInfo, error) {
	if isPrivateOrInvalid(ip) {
		return ports.GeoInfo{CountryCode: defaultCountry}, nil
	}

	endpoint := fmt.Sprintf("%s/json/%s?fields=status,countryCode", c.baseURL, url.PathEscape(ip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ports.GeoInfo{CountryCode: defaultCountry}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "geolocation lookup failed", slog.String("ip", ip), slog.Any("error", err))
		return ports.GeoInfo{CountryCode: defaultCountry}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.GeoInfo{CountryCode: defaultCountry}, err
	}

	var result lookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return ports.GeoInfo{CountryCode: defaultCountry}, err
	}

	if result.Status != "success" || result.CountryCode == "" {
		return ports.GeoInfo{CountryCode: defaultCountry}, nil
	}

	return ports.GeoInfo{CountryCode: result.CountryCode}, nil
}

// isPrivateOrInvalid отсекает адреса, которые внешний сервис не разрешит.
func isPrivateOrInvalid(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return true
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified()
}
