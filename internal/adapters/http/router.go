// Package http - Router configuration for REST API.
//
// Router собирает все handlers и middleware в единую точку входа.
//
// Pattern: Composition Root
// - Все зависимости собираются здесь
// - Handlers получают только нужные им use cases
// - Middleware применяется к соответствующим группам routes
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/common"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/handlers"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/middleware"
)

// ============================================
// Router Configuration
// ============================================

// RouterConfig - конфигурация роутера.
type RouterConfig struct {
	// Logger для middleware
	Logger *slog.Logger
	// Database pool для health checks
	Pool *pgxpool.Pool
	// Redis client для health checks
	Redis *redis.Client
	// Version приложения
	Version string
	// BuildTime время сборки
	BuildTime string
	// Environment (development, staging, production)
	Environment string
	// AllowedOrigins для CORS (production)
	AllowedOrigins []string
	// AuthTokenValidator - функция валидации токена
	AuthTokenValidator func(token string) (*middleware.AuthClaims, error)
	// DefaultOrigin - база для success/cancel URL, если клиент не прислал свою
	DefaultOrigin string
	// EnableTestEndpoints включает simulate-payment endpoint
	EnableTestEndpoints bool
	// EnableTracing включает OpenTelemetry span'ы на входящих запросах
	EnableTracing bool
}

// DefaultRouterConfig - конфигурация по умолчанию для development.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:              slog.Default(),
		Version:             "dev",
		BuildTime:           "unknown",
		Environment:         "development",
		AllowedOrigins:      []string{"*"},
		AuthTokenValidator:  middleware.JWTTokenValidator("dev-secret"),
		DefaultOrigin:       "http://localhost:3000",
		EnableTestEndpoints: true,
	}
}

// ============================================
// Use Case Providers
// ============================================

// CheckoutUseCases - provider для checkout use cases.
type CheckoutUseCases struct {
	CreateSession   handlers.CreateSessionUseCase
	GetStatus       handlers.GetStatusUseCase
	VerifyPayment   handlers.VerifyPaymentUseCase
	CompletePayment handlers.CompletePaymentUseCase
	SimulatePayment handlers.SimulatePaymentUseCase
	GetOrder        handlers.GetOrderUseCase
	GetProduct      handlers.GetProductUseCase
}

// WebhookUseCases - provider для webhook use cases.
type WebhookUseCases struct {
	HandleEvent handlers.HandleGatewayEventUseCase
}

// TipsterUseCases - provider для use cases кабинета типстера.
type TipsterUseCases struct {
	ListOrders   handlers.ListTipsterOrdersUseCase
	SalesSummary handlers.TipsterSalesSummaryUseCase
}

// ============================================
// Router Builder
// ============================================

// RouterBuilder - builder для создания роутера.
//
// Pattern: Builder
// - Позволяет пошагово настроить роутер
// - Проще тестировать
// - Можно переиспользовать части конфигурации
type RouterBuilder struct {
	config   *RouterConfig
	checkout *CheckoutUseCases
	webhooks *WebhookUseCases
	tipster  *TipsterUseCases
}

// NewRouterBuilder создаёт новый builder.
func NewRouterBuilder(config *RouterConfig) *RouterBuilder {
	if config == nil {
		config = DefaultRouterConfig()
	}
	return &RouterBuilder{
		config: config,
	}
}

// WithCheckoutUseCases добавляет checkout use cases.
func (b *RouterBuilder) WithCheckoutUseCases(useCases *CheckoutUseCases) *RouterBuilder {
	b.checkout = useCases
	return b
}

// WithWebhookUseCases добавляет webhook use cases.
func (b *RouterBuilder) WithWebhookUseCases(useCases *WebhookUseCases) *RouterBuilder {
	b.webhooks = useCases
	return b
}

// WithTipsterUseCases добавляет use cases кабинета типстера.
func (b *RouterBuilder) WithTipsterUseCases(useCases *TipsterUseCases) *RouterBuilder {
	b.tipster = useCases
	return b
}

// Build создаёт сконфигурированный Gin Engine.
func (b *RouterBuilder) Build() *gin.Engine {
	// Настраиваем режим Gin
	if b.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Создаём router без default middleware
	router := gin.New()

	// Настраиваем кастомные валидаторы
	handlers.SetupValidator()

	// ============================================
	// Global Middleware
	// ============================================

	// 1. Recovery - должен быть первым
	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           b.config.Logger,
		EnableStackTrace: b.config.Environment != "production",
	}))

	// 2. Request ID
	router.Use(middleware.RequestID())

	// 3. Tracing
	if b.config.EnableTracing {
		router.Use(otelgin.Middleware("antia-api"))
	}

	// 4. CORS
	if b.config.Environment == "production" {
		router.Use(middleware.CORS(middleware.ProductionCORSConfig(b.config.AllowedOrigins)))
	} else {
		router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	}

	// 5. Logging
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    b.config.Logger,
		SkipPaths: []string{"/health", "/live", "/ready", "/metrics"},
	}))

	// 6. Rate Limiting (global)
	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	// 7. Metrics (Prometheus)
	router.Use(middleware.Metrics())

	// ============================================
	// Metrics Endpoint (no auth)
	// ============================================

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============================================
	// Health Check Routes (no auth)
	// ============================================

	healthHandler := handlers.NewHealthHandler(
		b.config.Pool,
		b.config.Redis,
		b.config.Version,
		b.config.BuildTime,
	)
	healthHandler.RegisterRoutes(router)

	// ============================================
	// API v1 Routes
	// ============================================

	v1 := router.Group("/api/v1")

	// Checkout routes (public: покупатель может быть гостем)
	if b.checkout != nil {
		checkoutHandler := handlers.NewCheckoutHandler(
			b.checkout.CreateSession,
			b.checkout.GetStatus,
			b.checkout.VerifyPayment,
			b.checkout.CompletePayment,
			b.checkout.SimulatePayment,
			b.checkout.GetOrder,
			b.checkout.GetProduct,
			b.config.DefaultOrigin,
			b.config.EnableTestEndpoints,
		)
		checkout := v1.Group("/checkout")
		{
			// Создание сессии лимитируется жёстче: каждая сессия
			// пишет PENDING-заказ в базу
			checkout.POST("/session", middleware.CheckoutRateLimit(), checkoutHandler.CreateSession)
			checkout.GET("/status/:sessionId", checkoutHandler.GetStatus)
			checkout.GET("/verify", checkoutHandler.VerifyPayment)
			checkout.POST("/complete-payment", checkoutHandler.CompletePayment)
			checkout.POST("/simulate-payment/:orderId", checkoutHandler.SimulatePayment)
			checkout.GET("/order/:orderId", checkoutHandler.GetOrder)
			checkout.GET("/product/:productId", checkoutHandler.GetProduct)
		}
	}

	// Webhook routes (подпись проверяет адаптер шлюза, не auth middleware)
	if b.webhooks != nil {
		webhookHandler := handlers.NewWebhookHandler(b.webhooks.HandleEvent)
		v1.POST("/checkout/webhook/:provider", middleware.WebhookRateLimit(), webhookHandler.HandleWebhook)
	}

	// Tipster routes (auth required)
	if b.tipster != nil {
		orderHandler := handlers.NewOrderHandler(
			b.tipster.ListOrders,
			b.tipster.SalesSummary,
		)
		tipster := v1.Group("/tipster")
		tipster.Use(middleware.Auth(&middleware.AuthConfig{
			TokenValidator: b.config.AuthTokenValidator,
		}))
		{
			tipster.GET("/orders", orderHandler.ListOrders)
			tipster.GET("/sales/summary", orderHandler.SalesSummary)
		}
	}

	// ============================================
	// 404 Handler
	// ============================================

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, 404, &common.APIError{
			Code:    common.ErrCodeNotFound,
			Message: "Endpoint not found",
			Details: map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			},
		})
	})

	return router
}

// ============================================
// Quick Setup Functions
// ============================================

// NewRouter создаёт роутер с базовой конфигурацией (для простых случаев).
func NewRouter(config *RouterConfig) *gin.Engine {
	return NewRouterBuilder(config).Build()
}

// NewDevelopmentRouter создаёт роутер для development окружения.
func NewDevelopmentRouter() *gin.Engine {
	config := DefaultRouterConfig()
	config.Environment = "development"
	return NewRouter(config)
}
