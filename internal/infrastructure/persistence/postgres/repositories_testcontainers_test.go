// Package postgres - интеграционные тесты для PostgreSQL repositories с testcontainers.
//
// Запуск тестов:
//
//	go test ./internal/infrastructure/persistence/postgres/...
//
// Требования:
//   - Docker Desktop запущен
//   - testcontainers-go установлен
package postgres

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domerrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/events"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

// ============================================
// Test Helpers
// ============================================

// testContainer хранит контейнер и pool для тестов.
type testContainer struct {
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
}

// Shared container for all tests (performance optimization)
var sharedTestContainer *testContainer

// setupSharedTestDB создаёт или возвращает переиспользуемый PostgreSQL контейнер.
// Оптимизация: один контейнер для всех тестов вместо создания нового для каждого.
func setupSharedTestDB(t *testing.T) *testContainer {
	if sharedTestContainer != nil {
		// Очищаем данные между тестами
		cleanupTables(t, sharedTestContainer.pool)
		return sharedTestContainer
	}

	ctx := context.Background()

	// Путь к миграциям относительно текущего файла
	migrationsPath := filepath.Join("..", "..", "..", "..", "migrations")

	// Создаём PostgreSQL контейнер
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.WithInitScripts(
			filepath.Join(migrationsPath, "000001_create_tipster_profiles.up.sql"),
			filepath.Join(migrationsPath, "000002_create_products.up.sql"),
			filepath.Join(migrationsPath, "000003_create_orders.up.sql"),
			filepath.Join(migrationsPath, "000004_create_outbox.up.sql"),
		),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	// Получаем connection string
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	// Создаём connection pool
	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)

	// Проверяем подключение
	err = pool.Ping(ctx)
	require.NoError(t, err)

	sharedTestContainer = &testContainer{
		container: container,
		pool:      pool,
	}

	return sharedTestContainer
}

// cleanupTables очищает все таблицы для следующего теста.
func cleanupTables(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()

	// Важно: очищаем в правильном порядке из-за foreign keys
	tables := []string{"outbox", "orders", "products", "tipster_profiles"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		if err != nil {
			t.Logf("Warning: failed to cleanup %s: %v", table, err)
		}
	}
}

func seedTipster(t *testing.T, pool *pgxpool.Pool) *entities.TipsterProfile {
	t.Helper()

	tipster, err := entities.NewTipsterProfile("Pro Tips", "900100")
	require.NoError(t, err)

	repo := NewTipsterRepository(pool)
	require.NoError(t, repo.Save(context.Background(), tipster))
	return tipster
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, tipsterID string) *entities.Product {
	t.Helper()

	price, err := valueobjects.NewMoneyFromCents(2999, valueobjects.MustNewCurrency("EUR"))
	require.NoError(t, err)

	product, err := entities.NewProduct(tipsterID, "VIP Month", "Monthly picks", entities.ProductKindOneTime, price, "-1002001")
	require.NoError(t, err)

	repo := NewProductRepository(pool)
	require.NoError(t, repo.Save(context.Background(), product))
	return product
}

func seedPendingOrder(t *testing.T, pool *pgxpool.Pool, product *entities.Product) *entities.Order {
	t.Helper()

	buyer := entities.BuyerContact{
		Email:          "buyer@example.com",
		TelegramUserID: "555001",
	}
	order, err := entities.NewOrder(product.ID(), product.TipsterID(), product.Price(), buyer, false)
	require.NoError(t, err)

	repo := NewOrderRepository(pool)
	require.NoError(t, repo.Insert(context.Background(), order))
	return order
}

// ============================================
// OrderRepository Tests
// ============================================

func TestOrderRepository_Integration_InsertAndFind(t *testing.T) {
	tc := setupSharedTestDB(t)

	repo := NewOrderRepository(tc.pool)
	ctx := context.Background()

	tipster := seedTipster(t, tc.pool)
	product := seedProduct(t, tc.pool, tipster.ID())

	t.Run("InsertAndFindByID", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		loaded, err := repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, order.ID(), loaded.ID())
		assert.Equal(t, entities.OrderStatusPending, loaded.Status())
		assert.Equal(t, int64(2999), loaded.Amount().Cents())
		assert.Equal(t, "EUR", loaded.Amount().Currency().Code())
		assert.Equal(t, "buyer@example.com", loaded.Buyer().Email)
		assert.Equal(t, "555001", loaded.Buyer().TelegramUserID)
		assert.Nil(t, loaded.PaidAt())
	})

	t.Run("DuplicateInsertRejected", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		err := repo.Insert(ctx, order)
		assert.ErrorIs(t, err, domerrors.ErrEntityAlreadyExists)
	})

	t.Run("FindByIDNotFound", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing-order")
		assert.ErrorIs(t, err, domerrors.ErrEntityNotFound)
	})

	t.Run("FindByProviderSessionID", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		require.NoError(t, order.AttachSession(entities.PaymentProviderStripe, "cs_test_abc123"))
		require.NoError(t, repo.AttachSession(ctx, order))

		loaded, err := repo.FindByProviderSessionID(ctx, "cs_test_abc123")
		require.NoError(t, err)
		assert.Equal(t, order.ID(), loaded.ID())
		assert.Equal(t, entities.PaymentProviderStripe, loaded.Provider())
	})
}

func TestOrderRepository_Integration_MarkPaidIfPending(t *testing.T) {
	tc := setupSharedTestDB(t)

	repo := NewOrderRepository(tc.pool)
	ctx := context.Background()

	tipster := seedTipster(t, tc.pool)
	product := seedProduct(t, tc.pool, tipster.ID())

	t.Run("FirstTransitionWins", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		require.NoError(t, order.MarkPaid(entities.PaymentProviderStripe, "cs_win_1", "card"))
		won, err := repo.MarkPaidIfPending(ctx, order)
		require.NoError(t, err)
		assert.True(t, won)

		loaded, err := repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusPaid, loaded.Status())
		assert.Equal(t, "card", loaded.PaymentMethod())
		assert.False(t, loaded.Notified(), "notified is written by the fan-out, not by the status transition")
		require.NotNil(t, loaded.PaidAt())

		require.NoError(t, repo.MarkNotified(ctx, order.ID()))

		loaded, err = repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.True(t, loaded.Notified())
	})

	t.Run("SecondTransitionLoses", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		require.NoError(t, order.MarkPaid(entities.PaymentProviderStripe, "cs_dup_1", "card"))
		won, err := repo.MarkPaidIfPending(ctx, order)
		require.NoError(t, err)
		require.True(t, won)

		won, err = repo.MarkPaidIfPending(ctx, order)
		require.NoError(t, err)
		assert.False(t, won)
	})

	t.Run("EmptySessionKeepsExistingReference", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		require.NoError(t, order.AttachSession(entities.PaymentProviderStripe, "cs_keep_me"))
		require.NoError(t, repo.AttachSession(ctx, order))

		require.NoError(t, order.MarkPaid(entities.PaymentProviderStripe, "", "card"))
		won, err := repo.MarkPaidIfPending(ctx, order)
		require.NoError(t, err)
		require.True(t, won)

		loaded, err := repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, "cs_keep_me", loaded.ProviderSessionID())
	})

	t.Run("ConcurrentTransitionsSingleWinner", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		const workers = 8
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners int
		)

		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()

				attempt, err := entities.ReconstructOrder(
					order.ID(), order.ProductID(), order.TipsterID(),
					order.Amount(), order.Buyer(), order.IsGuest(),
					"PENDING", "", "", "", false,
					nil, order.CreatedAt(), order.UpdatedAt(),
				)
				if err != nil {
					t.Errorf("reconstruct: %v", err)
					return
				}
				if err := attempt.MarkPaid(entities.PaymentProviderStripe, fmt.Sprintf("cs_race_%d", n), "card"); err != nil {
					t.Errorf("mark paid: %v", err)
					return
				}

				won, err := repo.MarkPaidIfPending(ctx, attempt)
				if err != nil {
					t.Errorf("conditional update: %v", err)
					return
				}
				if won {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, winners)

		loaded, err := repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusPaid, loaded.Status())
	})
}

func TestOrderRepository_Integration_ExpiryAndAccess(t *testing.T) {
	tc := setupSharedTestDB(t)

	repo := NewOrderRepository(tc.pool)
	ctx := context.Background()

	tipster := seedTipster(t, tc.pool)
	product := seedProduct(t, tc.pool, tipster.ID())

	t.Run("ExpirePendingOrder", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		expired, err := repo.MarkExpiredIfPending(ctx, order.ID())
		require.NoError(t, err)
		assert.True(t, expired)

		loaded, err := repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusExpired, loaded.Status())
	})

	t.Run("PaidOrderImmuneToExpiry", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		require.NoError(t, order.MarkPaid(entities.PaymentProviderRedsys, "123456789012", "bizum"))
		won, err := repo.MarkPaidIfPending(ctx, order)
		require.NoError(t, err)
		require.True(t, won)

		expired, err := repo.MarkExpiredIfPending(ctx, order.ID())
		require.NoError(t, err)
		assert.False(t, expired)

		loaded, err := repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusPaid, loaded.Status())
	})

	t.Run("AccessGrantRequiresPaid", func(t *testing.T) {
		order := seedPendingOrder(t, tc.pool, product)

		err := repo.MarkAccessGranted(ctx, order.ID())
		assert.ErrorIs(t, err, domerrors.ErrOrderNotPaid)

		require.NoError(t, order.MarkPaid(entities.PaymentProviderStripe, "cs_access_1", "card"))
		won, err := repo.MarkPaidIfPending(ctx, order)
		require.NoError(t, err)
		require.True(t, won)

		require.NoError(t, repo.MarkAccessGranted(ctx, order.ID()))

		loaded, err := repo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusAccessGranted, loaded.Status())
	})
}

func TestOrderRepository_Integration_TipsterQueries(t *testing.T) {
	tc := setupSharedTestDB(t)

	repo := NewOrderRepository(tc.pool)
	ctx := context.Background()

	tipster := seedTipster(t, tc.pool)
	product := seedProduct(t, tc.pool, tipster.ID())

	// 3 заказа: два оплачены, один остаётся PENDING
	var paid []*entities.Order
	for i := 0; i < 2; i++ {
		order := seedPendingOrder(t, tc.pool, product)
		require.NoError(t, order.MarkPaid(entities.PaymentProviderStripe, fmt.Sprintf("cs_sum_%d", i), "card"))
		won, err := repo.MarkPaidIfPending(ctx, order)
		require.NoError(t, err)
		require.True(t, won)
		paid = append(paid, order)
	}
	pending := seedPendingOrder(t, tc.pool, product)

	t.Run("FindByTipsterAll", func(t *testing.T) {
		orders, err := repo.FindByTipster(ctx, tipster.ID(), ports.OrderFilter{}, 0, 20)
		require.NoError(t, err)
		assert.Len(t, orders, 3)

		count, err := repo.CountByTipster(ctx, tipster.ID(), ports.OrderFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("FilterByStatus", func(t *testing.T) {
		status := entities.OrderStatusPaid
		orders, err := repo.FindByTipster(ctx, tipster.ID(), ports.OrderFilter{Status: &status}, 0, 20)
		require.NoError(t, err)
		assert.Len(t, orders, 2)
		for _, o := range orders {
			assert.Equal(t, entities.OrderStatusPaid, o.Status())
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page, err := repo.FindByTipster(ctx, tipster.ID(), ports.OrderFilter{}, 0, 2)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := repo.FindByTipster(ctx, tipster.ID(), ports.OrderFilter{}, 2, 2)
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})

	t.Run("AggregateSales", func(t *testing.T) {
		totals, err := repo.AggregateSales(ctx, tipster.ID(), time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, int64(2), totals.OrdersPaid)
		assert.Equal(t, int64(1), totals.PendingOrders)
		assert.Equal(t, int64(2*2999), totals.TotalsByCCY["EUR"])
	})

	t.Run("AggregateSalesOutsidePeriod", func(t *testing.T) {
		totals, err := repo.AggregateSales(ctx, tipster.ID(), time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(0), totals.OrdersPaid)
		assert.Empty(t, totals.TotalsByCCY)
	})

	_ = paid
	_ = pending
}

// ============================================
// TipsterRepository / ProductRepository Tests
// ============================================

func TestTipsterRepository_Integration(t *testing.T) {
	tc := setupSharedTestDB(t)

	repo := NewTipsterRepository(tc.pool)
	ctx := context.Background()

	t.Run("SaveAndFind", func(t *testing.T) {
		tipster := seedTipster(t, tc.pool)

		loaded, err := repo.FindByID(ctx, tipster.ID())
		require.NoError(t, err)
		assert.Equal(t, "Pro Tips", loaded.DisplayName())
		assert.Equal(t, 1000, loaded.CommissionBasisPts())
		assert.True(t, loaded.NotificationsActive())

		byTelegram, err := repo.FindByTelegramUserID(ctx, "900100")
		require.NoError(t, err)
		assert.Equal(t, tipster.ID(), byTelegram.ID())
	})

	t.Run("DuplicateTelegramIDRejected", func(t *testing.T) {
		seedTipster(t, tc.pool)

		other, err := entities.NewTipsterProfile("Copy Cat", "900100")
		require.NoError(t, err)

		err = repo.Save(ctx, other)
		require.Error(t, err)
		assert.True(t, domerrors.IsBusinessRuleViolation(err))
	})
}

func TestProductRepository_Integration(t *testing.T) {
	tc := setupSharedTestDB(t)

	repo := NewProductRepository(tc.pool)
	ctx := context.Background()

	tipster := seedTipster(t, tc.pool)

	t.Run("SaveAndFind", func(t *testing.T) {
		product := seedProduct(t, tc.pool, tipster.ID())

		loaded, err := repo.FindByID(ctx, product.ID())
		require.NoError(t, err)
		assert.Equal(t, "VIP Month", loaded.Title())
		assert.Equal(t, int64(2999), loaded.Price().Cents())
		assert.Equal(t, "-1002001", loaded.ChannelID())
		assert.True(t, loaded.IsActive())
	})

	t.Run("UpsertUpdatesPrice", func(t *testing.T) {
		product := seedProduct(t, tc.pool, tipster.ID())

		newPrice, err := valueobjects.NewMoneyFromCents(4999, valueobjects.MustNewCurrency("EUR"))
		require.NoError(t, err)
		require.NoError(t, product.UpdatePrice(newPrice))
		require.NoError(t, repo.Save(ctx, product))

		loaded, err := repo.FindByID(ctx, product.ID())
		require.NoError(t, err)
		assert.Equal(t, int64(4999), loaded.Price().Cents())
	})

	t.Run("FindByTipsterActiveOnly", func(t *testing.T) {
		active := seedProduct(t, tc.pool, tipster.ID())

		inactive := seedProduct(t, tc.pool, tipster.ID())
		inactive.Deactivate()
		require.NoError(t, repo.Save(ctx, inactive))

		products, err := repo.FindByTipster(ctx, tipster.ID(), true)
		require.NoError(t, err)
		for _, p := range products {
			assert.True(t, p.IsActive())
			assert.NotEqual(t, inactive.ID(), p.ID())
		}
		found := false
		for _, p := range products {
			if p.ID() == active.ID() {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("UnknownTipsterRejected", func(t *testing.T) {
		price, err := valueobjects.NewMoneyFromCents(1000, valueobjects.MustNewCurrency("EUR"))
		require.NoError(t, err)
		orphan, err := entities.NewProduct("no-such-tipster", "Orphan", "", entities.ProductKindOneTime, price, "")
		require.NoError(t, err)

		err = repo.Save(ctx, orphan)
		require.Error(t, err)
	})
}

// ============================================
// OutboxRepository Tests
// ============================================

func TestOutboxRepository_Integration(t *testing.T) {
	tc := setupSharedTestDB(t)

	repo := NewOutboxRepository(tc.pool)
	ctx := context.Background()

	tipster := seedTipster(t, tc.pool)
	product := seedProduct(t, tc.pool, tipster.ID())
	order := seedPendingOrder(t, tc.pool, product)

	t.Run("SaveAndFindUnpublished", func(t *testing.T) {
		event := events.NewOrderPaid(order.ID(), order.ProductID(), order.TipsterID(), order.Amount(), "stripe", "card")
		require.NoError(t, repo.Save(ctx, event))

		entries, err := repo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, events.EventTypeOrderPaid, entries[0].EventType)
		assert.Equal(t, order.ID(), entries[0].AggregateID)
		assert.Contains(t, string(entries[0].Payload), `"event_type":"order.paid"`)
	})

	t.Run("MarkPublishedRemovesFromQueue", func(t *testing.T) {
		cleanupTables(t, tc.pool)
		tipster = seedTipster(t, tc.pool)
		product = seedProduct(t, tc.pool, tipster.ID())
		order = seedPendingOrder(t, tc.pool, product)

		event := events.NewOrderExpired(order.ID(), order.ProductID(), "stripe")
		require.NoError(t, repo.Save(ctx, event))

		entries, err := repo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		require.NoError(t, repo.MarkPublished(ctx, entries[0].EventID))

		entries, err = repo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("MarkFailedKeepsForRetry", func(t *testing.T) {
		cleanupTables(t, tc.pool)
		tipster = seedTipster(t, tc.pool)
		product = seedProduct(t, tc.pool, tipster.ID())
		order = seedPendingOrder(t, tc.pool, product)

		event := events.NewOrderExpired(order.ID(), order.ProductID(), "stripe")
		require.NoError(t, repo.Save(ctx, event))

		entries, err := repo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		require.NoError(t, repo.MarkFailed(ctx, entries[0].EventID, "nats unavailable"))

		// FAILED события не возвращаются в выборку PENDING
		entries, err = repo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

// ============================================
// UnitOfWork Tests
// ============================================

func TestUnitOfWork_Integration(t *testing.T) {
	tc := setupSharedTestDB(t)

	uow := NewUnitOfWork(tc.pool)
	orderRepo := NewOrderRepository(tc.pool)
	outboxRepo := NewOutboxRepository(tc.pool)
	ctx := context.Background()

	tipster := seedTipster(t, tc.pool)
	product := seedProduct(t, tc.pool, tipster.ID())

	t.Run("CommitPersistsOrderAndEvent", func(t *testing.T) {
		buyer := entities.BuyerContact{Email: "tx@example.com"}
		order, err := entities.NewOrder(product.ID(), product.TipsterID(), product.Price(), buyer, false)
		require.NoError(t, err)

		err = uow.Execute(ctx, func(txCtx context.Context) error {
			if err := orderRepo.Insert(txCtx, order); err != nil {
				return err
			}
			event := events.NewOrderCreated(order.ID(), order.ProductID(), order.TipsterID(), order.Amount(), order.IsGuest())
			return outboxRepo.Save(txCtx, event)
		})
		require.NoError(t, err)

		loaded, err := orderRepo.FindByID(ctx, order.ID())
		require.NoError(t, err)
		assert.Equal(t, entities.OrderStatusPending, loaded.Status())

		entries, err := outboxRepo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, events.EventTypeOrderCreated, entries[0].EventType)
	})

	t.Run("ErrorRollsBackEverything", func(t *testing.T) {
		cleanupTables(t, tc.pool)
		tipster = seedTipster(t, tc.pool)
		product = seedProduct(t, tc.pool, tipster.ID())

		buyer := entities.BuyerContact{Email: "rollback@example.com"}
		order, err := entities.NewOrder(product.ID(), product.TipsterID(), product.Price(), buyer, false)
		require.NoError(t, err)

		wantErr := fmt.Errorf("boom")
		err = uow.Execute(ctx, func(txCtx context.Context) error {
			if err := orderRepo.Insert(txCtx, order); err != nil {
				return err
			}
			event := events.NewOrderCreated(order.ID(), order.ProductID(), order.TipsterID(), order.Amount(), order.IsGuest())
			if err := outboxRepo.Save(txCtx, event); err != nil {
				return err
			}
			return wantErr
		})
		assert.ErrorIs(t, err, wantErr)

		_, err = orderRepo.FindByID(ctx, order.ID())
		assert.ErrorIs(t, err, domerrors.ErrEntityNotFound)

		entries, err := outboxRepo.FindUnpublished(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
