package checkout

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domainErrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/events"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu sync.Mutex

	insertFunc                  func(ctx context.Context, order *entities.Order) error
	findByIDFunc                func(ctx context.Context, id string) (*entities.Order, error)
	findByProviderSessionIDFunc func(ctx context.Context, sessionID string) (*entities.Order, error)
	attachSessionFunc           func(ctx context.Context, order *entities.Order) error
	markPaidIfPendingFunc       func(ctx context.Context, order *entities.Order) (bool, error)
	markExpiredIfPendingFunc    func(ctx context.Context, orderID string) (bool, error)
	markAccessGrantedFunc       func(ctx context.Context, orderID string) error
	markNotifiedFunc            func(ctx context.Context, orderID string) error
	listStalePendingFunc        func(ctx context.Context, olderThan time.Time, limit int) ([]string, error)

	markPaidCalls     int
	markNotifiedCalls int
}

func (m *mockOrderRepo) Insert(ctx context.Context, order *entities.Order) error {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, order)
	}
	return nil
}

func (m *mockOrderRepo) FindByID(ctx context.Context, id string) (*entities.Order, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (m *mockOrderRepo) FindByProviderSessionID(ctx context.Context, sessionID string) (*entities.Order, error) {
	if m.findByProviderSessionIDFunc != nil {
		return m.findByProviderSessionIDFunc(ctx, sessionID)
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (m *mockOrderRepo) AttachSession(ctx context.Context, order *entities.Order) error {
	if m.attachSessionFunc != nil {
		return m.attachSessionFunc(ctx, order)
	}
	return nil
}

func (m *mockOrderRepo) MarkPaidIfPending(ctx context.Context, order *entities.Order) (bool, error) {
	m.mu.Lock()
	m.markPaidCalls++
	m.mu.Unlock()
	if m.markPaidIfPendingFunc != nil {
		return m.markPaidIfPendingFunc(ctx, order)
	}
	return true, nil
}

func (m *mockOrderRepo) MarkExpiredIfPending(ctx context.Context, orderID string) (bool, error) {
	if m.markExpiredIfPendingFunc != nil {
		return m.markExpiredIfPendingFunc(ctx, orderID)
	}
	return true, nil
}

func (m *mockOrderRepo) MarkNotified(ctx context.Context, orderID string) error {
	m.mu.Lock()
	m.markNotifiedCalls++
	m.mu.Unlock()
	if m.markNotifiedFunc != nil {
		return m.markNotifiedFunc(ctx, orderID)
	}
	return nil
}

func (m *mockOrderRepo) MarkAccessGranted(ctx context.Context, orderID string) error {
	if m.markAccessGrantedFunc != nil {
		return m.markAccessGrantedFunc(ctx, orderID)
	}
	return nil
}

func (m *mockOrderRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	if m.listStalePendingFunc != nil {
		return m.listStalePendingFunc(ctx, olderThan, limit)
	}
	return nil, nil
}

func (m *mockOrderRepo) FindByTipster(ctx context.Context, tipsterID string, filter ports.OrderFilter, offset, limit int) ([]*entities.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) CountByTipster(ctx context.Context, tipsterID string, filter ports.OrderFilter) (int64, error) {
	return 0, nil
}

func (m *mockOrderRepo) AggregateSales(ctx context.Context, tipsterID string, from, to time.Time) (ports.SalesTotals, error) {
	return ports.SalesTotals{}, nil
}

// Mock ProductRepository
type mockProductRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*entities.Product, error)
}

func (m *mockProductRepo) Save(ctx context.Context, product *entities.Product) error {
	return nil
}

func (m *mockProductRepo) FindByID(ctx context.Context, id string) (*entities.Product, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (m *mockProductRepo) FindByTipster(ctx context.Context, tipsterID string, activeOnly bool) ([]*entities.Product, error) {
	return nil, nil
}

// Mock TipsterRepository
type mockTipsterRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*entities.TipsterProfile, error)
}

func (m *mockTipsterRepo) Save(ctx context.Context, profile *entities.TipsterProfile) error {
	return nil
}

func (m *mockTipsterRepo) FindByID(ctx context.Context, id string) (*entities.TipsterProfile, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, domainErrors.ErrEntityNotFound
}

func (m *mockTipsterRepo) FindByTelegramUserID(ctx context.Context, telegramUserID string) (*entities.TipsterProfile, error) {
	return nil, domainErrors.ErrEntityNotFound
}

// Mock OutboxRepository
type mockOutbox struct {
	mu    sync.Mutex
	saved []events.DomainEvent

	saveFunc func(ctx context.Context, event events.DomainEvent) error
}

func (m *mockOutbox) Save(ctx context.Context, event events.DomainEvent) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, event)
	}
	m.mu.Lock()
	m.saved = append(m.saved, event)
	m.mu.Unlock()
	return nil
}

func (m *mockOutbox) FindUnpublished(ctx context.Context, limit int) ([]ports.OutboxEntry, error) {
	return nil, nil
}

func (m *mockOutbox) MarkPublished(ctx context.Context, eventID string) error {
	return nil
}

func (m *mockOutbox) MarkFailed(ctx context.Context, eventID string, reason string) error {
	return nil
}

func (m *mockOutbox) savedTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, len(m.saved))
	for i, e := range m.saved {
		types[i] = e.EventType()
	}
	return types
}

// Mock NotificationSink
type mockNotifier struct {
	mu    sync.Mutex
	calls int

	notifyFunc func(ctx context.Context, n ports.SaleNotification) error
}

func (m *mockNotifier) NotifySale(ctx context.Context, n ports.SaleNotification) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.notifyFunc != nil {
		return m.notifyFunc(ctx, n)
	}
	return nil
}

func (m *mockNotifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Mock AccessProvisioner
type mockProvisioner struct {
	mu    sync.Mutex
	calls int

	grantFunc func(ctx context.Context, order *entities.Order, product *entities.Product) (string, error)
}

func (m *mockProvisioner) GrantAccess(ctx context.Context, order *entities.Order, product *entities.Product) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.grantFunc != nil {
		return m.grantFunc(ctx, order, product)
	}
	return "https://t.me/+invite", nil
}

// Mock UnitOfWork - выполняет fn без настоящей транзакции
type mockUnitOfWork struct{}

func (m *mockUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (m *mockUnitOfWork) ExecuteWithResult(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	return fn(ctx)
}

// Mock PaymentGateway
type mockGateway struct {
	provider entities.PaymentProvider

	createSessionFunc      func(ctx context.Context, req ports.CheckoutSessionRequest) (*ports.CheckoutSession, error)
	parseWebhookFunc       func(ctx context.Context, payload []byte, headers map[string]string) (*ports.GatewayEvent, error)
	checkPaymentStatusFunc func(ctx context.Context, sessionID string) (*ports.PaymentStatus, error)
}

func (m *mockGateway) Provider() entities.PaymentProvider {
	if m.provider == "" {
		return entities.PaymentProviderStripe
	}
	return m.provider
}

func (m *mockGateway) CreateSession(ctx context.Context, req ports.CheckoutSessionRequest) (*ports.CheckoutSession, error) {
	if m.createSessionFunc != nil {
		return m.createSessionFunc(ctx, req)
	}
	return &ports.CheckoutSession{
		Provider:    m.Provider(),
		SessionID:   "cs_test_mock",
		CheckoutURL: "https://checkout.example.com/cs_test_mock",
	}, nil
}

func (m *mockGateway) ParseWebhook(ctx context.Context, payload []byte, headers map[string]string) (*ports.GatewayEvent, error) {
	if m.parseWebhookFunc != nil {
		return m.parseWebhookFunc(ctx, payload, headers)
	}
	return &ports.GatewayEvent{Kind: ports.GatewayEventIgnored}, nil
}

func (m *mockGateway) CheckPaymentStatus(ctx context.Context, sessionID string) (*ports.PaymentStatus, error) {
	if m.checkPaymentStatusFunc != nil {
		return m.checkPaymentStatusFunc(ctx, sessionID)
	}
	return &ports.PaymentStatus{Paid: false}, nil
}

// Mock GatewaySelector - всегда возвращает один и тот же шлюз
type mockSelector struct {
	gateway ports.PaymentGateway
}

func (m *mockSelector) Select(ctx context.Context, buyerIP string, preferBizum bool) (ports.PaymentGateway, error) {
	return m.gateway, nil
}

func (m *mockSelector) ByProvider(provider entities.PaymentProvider) (ports.PaymentGateway, error) {
	return m.gateway, nil
}

// Mock ProcessedEventStore
type mockProcessedStore struct {
	mu   sync.Mutex
	seen map[string]bool

	err error
}

func (m *mockProcessedStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func (m *mockProcessedStore) Unmark(ctx context.Context, eventID string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, eventID)
	return nil
}

// Test fixtures

func testMoney(cents int64) valueobjects.Money {
	m, err := valueobjects.NewMoneyFromCents(cents, valueobjects.EUR)
	if err != nil {
		panic(err)
	}
	return m
}

func makePendingOrder(sessionID string) *entities.Order {
	order, err := entities.NewOrder("prod-1", "tipster-1", testMoney(2000), entities.BuyerContact{
		Email:          "buyer@example.com",
		TelegramUserID: "555",
	}, false)
	if err != nil {
		panic(err)
	}
	if sessionID != "" {
		if err := order.AttachSession(entities.PaymentProviderStripe, sessionID); err != nil {
			panic(err)
		}
	}
	return order
}

// makeEmailOrder - покупатель без Telegram: fan-out не выдаёт доступ,
// заказ остаётся в PAID
func makeEmailOrder(sessionID string) *entities.Order {
	order, err := entities.NewOrder("prod-1", "tipster-1", testMoney(2000), entities.BuyerContact{
		Email: "buyer@example.com",
	}, false)
	if err != nil {
		panic(err)
	}
	if sessionID != "" {
		if err := order.AttachSession(entities.PaymentProviderStripe, sessionID); err != nil {
			panic(err)
		}
	}
	return order
}

func makeProduct() *entities.Product {
	product, err := entities.NewProduct("tipster-1", "VIP Channel", "monthly picks", entities.ProductKindSubscription, testMoney(2000), "-100200")
	if err != nil {
		panic(err)
	}
	return product
}

func makeTipster() *entities.TipsterProfile {
	tipster, err := entities.NewTipsterProfile("Antia Tips", "987")
	if err != nil {
		panic(err)
	}
	return tipster
}

func newTestSettler(orderRepo *mockOrderRepo, productRepo *mockProductRepo, tipsterRepo *mockTipsterRepo, outbox *mockOutbox, notifier *mockNotifier, provisioner *mockProvisioner) *Settler {
	return NewSettler(orderRepo, productRepo, tipsterRepo, outbox, notifier, provisioner, &mockUnitOfWork{}, testLogger())
}
