// Package container - Dependency Injection container for the application.
//
// Container управляет жизненным циклом всех зависимостей:
// - Создание (lazy initialization)
// - Доступ (getters)
// - Закрытие (cleanup)
//
// Pattern: Composition Root
// - Все зависимости собираются в одном месте
// - Легко тестировать
// - Легко заменять реализации
package container

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/adapters/http/middleware"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/usecases/checkout"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/usecases/order"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/config"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/dedup"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/gateway"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/gateway/redsys"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/gateway/stripe"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/geolocation"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/persistence/postgres"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/telegram"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/pkg/logger"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/pkg/tracing"
)

// ============================================
// Container
// ============================================

// Container - DI контейнер приложения.
type Container struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	pool            *pgxpool.Pool
	redisClient     *redis.Client
	tracingShutdown func(context.Context) error

	// Repositories
	orderRepo   ports.OrderRepository
	productRepo ports.ProductRepository
	tipsterRepo ports.TipsterRepository
	outboxRepo  *postgres.OutboxRepository

	// Unit of Work
	uow ports.UnitOfWork

	// Gateways
	selector  ports.GatewaySelector
	processed ports.ProcessedEventStore
	telegram  *telegram.Client

	// Settlement
	settler *checkout.Settler
	reaper  *checkout.ExpiryReaper

	// Use Cases
	createSessionUC   *checkout.CreateSessionUseCase
	getStatusUC       *checkout.GetStatusUseCase
	verifyPaymentUC   *checkout.VerifyPaymentUseCase
	completePaymentUC *checkout.CompletePaymentUseCase
	simulatePaymentUC *checkout.SimulatePaymentUseCase
	handleEventUC     *checkout.HandleGatewayEventUseCase
	getOrderUC        *checkout.GetOrderUseCase
	getProductUC      *checkout.GetProductUseCase
	listOrdersUC      *order.ListTipsterOrdersUseCase
	salesSummaryUC    *order.TipsterSalesSummaryUseCase

	// HTTP
	httpServer *http.Server

	// Background workers
	reaperCancel context.CancelFunc
}

// New создаёт новый контейнер с заданной конфигурацией.
func New(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// ============================================
// Initialization
// ============================================

// Initialize инициализирует все зависимости.
func (c *Container) Initialize(ctx context.Context) error {
	c.initLogger()
	c.logger.Info("Initializing application container...")

	// 1. Tracing
	if err := c.initTracing(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// 2. Database
	if err := c.initDatabase(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database connected")

	// 3. Redis (необязателен: dedup деградирует до одного барьера CAS)
	c.initRedis(ctx)

	// 4. Repositories
	c.initRepositories()
	c.logger.Info("Repositories initialized")

	// 5. Gateways
	c.initGateways()
	c.logger.Info("Payment gateways initialized")

	// 6. Use Cases
	c.initUseCases()
	c.logger.Info("Use cases initialized")

	// 7. HTTP Server
	c.initHTTPServer()
	c.logger.Info("HTTP server initialized")

	c.logger.Info("Container initialization complete")
	return nil
}

// initLogger инициализирует логгер.
func (c *Container) initLogger() {
	logger.Setup(&logger.Config{
		Level:     c.config.Log.Level,
		Format:    c.config.Log.Format,
		Output:    os.Stdout,
		AddSource: c.config.App.Debug,
	})
	c.logger = slog.Default()
}

// initTracing инициализирует OpenTelemetry.
func (c *Container) initTracing(ctx context.Context) error {
	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      c.config.Tracing.Enabled,
		ServiceName:  c.config.App.Name,
		Version:      c.config.App.Version,
		Environment:  c.config.App.Environment,
		OTLPEndpoint: c.config.Tracing.OTLPEndpoint,
		SampleRatio:  c.config.Tracing.SampleRatio,
		Insecure:     !c.config.App.IsProduction(),
	})
	if err != nil {
		return err
	}
	c.tracingShutdown = shutdown
	return nil
}

// initDatabase инициализирует подключение к БД.
func (c *Container) initDatabase(ctx context.Context) error {
	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		Host:            c.config.Database.Host,
		Port:            c.config.Database.Port,
		Database:        c.config.Database.Database,
		User:            c.config.Database.User,
		Password:        c.config.Database.Password,
		SSLMode:         c.config.Database.SSLMode,
		MaxConns:        c.config.Database.MaxConnections,
		MinConns:        c.config.Database.MinConnections,
		MaxConnLifetime: c.config.Database.MaxConnLifetime,
		MaxConnIdleTime: c.config.Database.MaxConnIdleTime,
	})
	if err != nil {
		return err
	}

	c.pool = pool
	return nil
}

// initRedis инициализирует Redis для дедупликации webhook-событий.
// Недоступный Redis не валит старт: второй барьер (условный UPDATE в БД)
// сохраняет идемпотентность, теряется только экономия на дубликатах.
func (c *Container) initRedis(ctx context.Context) {
	client := dedup.NewClient(c.config.Redis.Addr, c.config.Redis.Password, c.config.Redis.DB)

	if err := dedup.HealthCheck(ctx, client); err != nil {
		c.logger.Warn("Redis unavailable, webhook dedup degraded to DB-only",
			slog.String("addr", c.config.Redis.Addr),
			slog.Any("error", err),
		)
	}

	c.redisClient = client
	c.processed = dedup.NewRedisStore(client)
}

// initRepositories инициализирует репозитории.
func (c *Container) initRepositories() {
	c.orderRepo = postgres.NewOrderRepository(c.pool)
	c.productRepo = postgres.NewProductRepository(c.pool)
	c.tipsterRepo = postgres.NewTipsterRepository(c.pool)
	c.outboxRepo = postgres.NewOutboxRepository(c.pool)

	// Unit of Work
	c.uow = postgres.NewUnitOfWork(c.pool)
}

// initGateways инициализирует платёжные шлюзы и geo-селектор.
func (c *Container) initGateways() {
	gateways := []ports.PaymentGateway{
		stripe.NewGateway(stripe.Config{
			APIKey:        c.config.Stripe.APIKey,
			WebhookSecret: c.config.Stripe.WebhookSecret,
		}, c.logger),
	}

	// Redsys подключается только при заполненных merchant-реквизитах;
	// без него все заказы маршрутизируются на Stripe.
	if c.config.Redsys.Enabled() {
		gateways = append(gateways, redsys.NewGateway(redsys.Config{
			MerchantCode: c.config.Redsys.MerchantCode,
			Terminal:     c.config.Redsys.Terminal,
			SecretKey:    c.config.Redsys.SecretKey,
			Production:   c.config.Redsys.Production,
			WebhookURL:   c.config.Redsys.WebhookURL,
		}, c.logger))
	}

	geolocator := geolocation.NewClient(c.config.Geolocation.BaseURL, c.logger)
	c.selector = gateway.NewGeoSelector(geolocator, c.logger, gateways...)

	c.telegram = telegram.NewClient(telegram.Config{
		BotToken:      c.config.Telegram.BotToken,
		SupportHandle: c.config.Telegram.SupportHandle,
	}, c.logger)
}

// initUseCases инициализирует use cases.
func (c *Container) initUseCases() {
	// Settler - единая точка проведения оплаты для всех путей reconciliation
	c.settler = checkout.NewSettler(
		c.orderRepo,
		c.productRepo,
		c.tipsterRepo,
		c.outboxRepo,
		c.telegram,
		c.telegram,
		c.uow,
		c.logger,
	)

	// Checkout Use Cases
	c.createSessionUC = checkout.NewCreateSessionUseCase(
		c.orderRepo,
		c.productRepo,
		c.selector,
		c.outboxRepo,
		c.uow,
		c.logger,
	)
	c.getStatusUC = checkout.NewGetStatusUseCase(c.orderRepo)
	c.verifyPaymentUC = checkout.NewVerifyPaymentUseCase(c.orderRepo, c.selector, c.settler, c.logger)
	c.completePaymentUC = checkout.NewCompletePaymentUseCase(c.orderRepo, c.settler, c.logger)
	c.simulatePaymentUC = checkout.NewSimulatePaymentUseCase(c.orderRepo, c.settler, c.logger)
	c.handleEventUC = checkout.NewHandleGatewayEventUseCase(
		c.selector,
		c.orderRepo,
		c.processed,
		c.settler,
		c.logger,
	)
	c.getOrderUC = checkout.NewGetOrderUseCase(c.orderRepo)
	c.getProductUC = checkout.NewGetProductUseCase(c.productRepo, c.tipsterRepo)

	// Tipster Cabinet Use Cases
	c.listOrdersUC = order.NewListTipsterOrdersUseCase(c.orderRepo)
	c.salesSummaryUC = order.NewTipsterSalesSummaryUseCase(c.orderRepo, c.tipsterRepo)

	// Reaper закрывает брошенные pending-заказы (Redsys не шлёт expiry)
	c.reaper = checkout.NewExpiryReaper(
		c.orderRepo,
		c.settler,
		c.logger,
		checkout.WithSessionTTL(c.config.Checkout.SessionTTL),
		checkout.WithSweepInterval(c.config.Checkout.ExpirySweepInterval),
	)
}

// initHTTPServer инициализирует HTTP сервер.
func (c *Container) initHTTPServer() {
	routerConfig := &http.RouterConfig{
		Logger:              c.logger,
		Pool:                c.pool,
		Redis:               c.redisClient,
		Version:             c.config.App.Version,
		BuildTime:           c.config.App.BuildTime,
		Environment:         c.config.App.Environment,
		AllowedOrigins:      c.config.CORS.AllowedOrigins,
		AuthTokenValidator:  middleware.JWTTokenValidator(c.config.Auth.JWTSecret),
		DefaultOrigin:       c.config.Checkout.DefaultOrigin,
		EnableTestEndpoints: c.config.Checkout.EnableTestEndpoints,
		EnableTracing:       c.config.Tracing.Enabled,
	}

	router := http.NewRouterBuilder(routerConfig).
		WithCheckoutUseCases(&http.CheckoutUseCases{
			CreateSession:   c.createSessionUC,
			GetStatus:       c.getStatusUC,
			VerifyPayment:   c.verifyPaymentUC,
			CompletePayment: c.completePaymentUC,
			SimulatePayment: c.simulatePaymentUC,
			GetOrder:        c.getOrderUC,
			GetProduct:      c.getProductUC,
		}).
		WithWebhookUseCases(&http.WebhookUseCases{
			HandleEvent: c.handleEventUC,
		}).
		WithTipsterUseCases(&http.TipsterUseCases{
			ListOrders:   c.listOrdersUC,
			SalesSummary: c.salesSummaryUC,
		}).
		Build()

	serverConfig := &http.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            fmt.Sprintf("%d", c.config.Server.Port),
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Logger:          c.logger,
	}

	c.httpServer = http.NewServer(serverConfig, router)
}

// ============================================
// Getters
// ============================================

// Config возвращает конфигурацию.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger возвращает логгер.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Pool возвращает пул соединений к БД.
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// Redis возвращает Redis клиент.
func (c *Container) Redis() *redis.Client {
	return c.redisClient
}

// HTTPServer возвращает HTTP сервер.
func (c *Container) HTTPServer() *http.Server {
	return c.httpServer
}

// ============================================
// Repository Getters
// ============================================

// OrderRepository возвращает репозиторий заказов.
func (c *Container) OrderRepository() ports.OrderRepository {
	return c.orderRepo
}

// ProductRepository возвращает репозиторий продуктов.
func (c *Container) ProductRepository() ports.ProductRepository {
	return c.productRepo
}

// TipsterRepository возвращает репозиторий профилей типстеров.
func (c *Container) TipsterRepository() ports.TipsterRepository {
	return c.tipsterRepo
}

// OutboxRepository возвращает репозиторий outbox'а.
func (c *Container) OutboxRepository() *postgres.OutboxRepository {
	return c.outboxRepo
}

// UnitOfWork возвращает Unit of Work.
func (c *Container) UnitOfWork() ports.UnitOfWork {
	return c.uow
}

// ============================================
// Use Case Getters
// ============================================

// CreateSessionUseCase возвращает use case создания checkout-сессии.
func (c *Container) CreateSessionUseCase() *checkout.CreateSessionUseCase {
	return c.createSessionUC
}

// HandleGatewayEventUseCase возвращает use case обработки webhook'ов.
func (c *Container) HandleGatewayEventUseCase() *checkout.HandleGatewayEventUseCase {
	return c.handleEventUC
}

// Settler возвращает точку проведения оплат.
func (c *Container) Settler() *checkout.Settler {
	return c.settler
}

// ExpiryReaper возвращает reaper брошенных заказов.
func (c *Container) ExpiryReaper() *checkout.ExpiryReaper {
	return c.reaper
}

// ============================================
// Shutdown
// ============================================

// Shutdown выполняет graceful shutdown всех компонентов.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	var errs []error

	// 1. Background workers
	if c.reaperCancel != nil {
		c.reaperCancel()
	}

	// 2. HTTP Server
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	// 3. Tracing (дослать накопленные span'ы)
	if c.tracingShutdown != nil {
		if err := c.tracingShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
	}

	// 4. Redis
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}

	// 5. Database (даём время на завершение транзакций)
	if c.pool != nil {
		done := make(chan struct{})
		go func() {
			c.pool.Close()
			close(done)
		}()

		select {
		case <-done:
			c.logger.Info("Database connection closed")
		case <-ctx.Done():
			c.logger.Warn("Database close timeout")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

// ============================================
// Run
// ============================================

// Run запускает приложение и ожидает сигнал завершения.
func (c *Container) Run() error {
	c.logger.Info("Starting Antia API Server",
		slog.String("version", c.config.App.Version),
		slog.String("environment", c.config.App.Environment),
		slog.String("address", c.config.Server.Address()),
	)

	reaperCtx, cancel := context.WithCancel(context.Background())
	c.reaperCancel = cancel
	go func() {
		if err := c.reaper.Run(reaperCtx); err != nil && reaperCtx.Err() == nil {
			c.logger.Error("expiry reaper exited", slog.Any("error", err))
		}
	}()

	defer cancel()
	return c.httpServer.Run()
}

// ============================================
// Builder Pattern (Alternative)
// ============================================

// ContainerBuilder - builder для создания контейнера с кастомными компонентами.
type ContainerBuilder struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	redis  *redis.Client
}

// NewBuilder создаёт новый builder.
func NewBuilder(cfg *config.Config) *ContainerBuilder {
	return &ContainerBuilder{
		cfg: cfg,
	}
}

// WithLogger устанавливает кастомный логгер.
func (b *ContainerBuilder) WithLogger(logger *slog.Logger) *ContainerBuilder {
	b.logger = logger
	return b
}

// WithPool устанавливает готовый пул соединений.
func (b *ContainerBuilder) WithPool(pool *pgxpool.Pool) *ContainerBuilder {
	b.pool = pool
	return b
}

// WithRedis устанавливает готовый Redis клиент.
func (b *ContainerBuilder) WithRedis(client *redis.Client) *ContainerBuilder {
	b.redis = client
	return b
}

// Build создаёт контейнер.
func (b *ContainerBuilder) Build(ctx context.Context) (*Container, error) {
	c := New(b.cfg)

	if b.logger != nil {
		c.logger = b.logger
	} else {
		c.initLogger()
	}

	if err := c.initTracing(ctx); err != nil {
		return nil, err
	}

	if b.pool != nil {
		c.pool = b.pool
	} else {
		if err := c.initDatabase(ctx); err != nil {
			return nil, err
		}
	}

	if b.redis != nil {
		c.redisClient = b.redis
		c.processed = dedup.NewRedisStore(b.redis)
	} else {
		c.initRedis(ctx)
	}

	c.initRepositories()
	c.initGateways()
	c.initUseCases()
	c.initHTTPServer()

	return c, nil
}
