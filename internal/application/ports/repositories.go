// Package ports определяет интерфейсы (порты) для внешних зависимостей.
// Эти интерфейсы реализуются в Infrastructure Layer.
//
// SOLID Principles:
// - DIP: Application зависит от абстракций, не от конкретных реализаций
// - ISP: Каждый интерфейс фокусируется на одной сущности
// - SRP: Repository отвечает только за persistence
//
// Pattern: Repository Pattern + Ports & Adapters (Hexagonal Architecture)
package ports

import (
	"context"
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
)

// OrderRepository определяет контракт для хранения заказов.
//
// Важно: заказы никогда не удаляются. Статус меняется только вперёд,
// и конкурирующие пути reconciliation гоняются за одним и тем же
// переходом PENDING -> PAID. Поэтому помимо обычного Save есть
// условные обновления, которые выполняют переход атомарно в БД.
type OrderRepository interface {
	// Insert сохраняет новый заказ.
	// Возвращает ErrEntityAlreadyExists при конфликте ID.
	Insert(ctx context.Context, order *entities.Order) error

	// FindByID загружает заказ по ID.
	// Возвращает ErrEntityNotFound если не найден.
	FindByID(ctx context.Context, id string) (*entities.Order, error)

	// FindByProviderSessionID находит заказ по ссылке платёжного шлюза
	// (Stripe session id или номер операции Redsys).
	FindByProviderSessionID(ctx context.Context, sessionID string) (*entities.Order, error)

	// AttachSession записывает ссылку на сессию шлюза для pending-заказа.
	AttachSession(ctx context.Context, order *entities.Order) error

	// MarkPaidIfPending выполняет атомарный переход PENDING -> PAID.
	//
	// Критично для идемпотентности! Выполняется как условный UPDATE:
	//   UPDATE ... SET status='PAID', ... WHERE id=$1 AND status='PENDING'
	//
	// Возвращает won=true только для того вызова, который реально
	// изменил строку. Все проигравшие получают won=false без ошибки.
	// Уведомления о продаже отправляет только победитель.
	MarkPaidIfPending(ctx context.Context, order *entities.Order) (won bool, err error)

	// MarkExpiredIfPending выполняет атомарный переход PENDING -> EXPIRED.
	// Для уже оплаченного заказа возвращает won=false: просроченная
	// сессия не трогает успешный платёж.
	MarkExpiredIfPending(ctx context.Context, orderID string) (won bool, err error)

	// MarkNotified фиксирует, что fan-out после оплаты фактически
	// выполнен. Вызывается победителем после уведомлений, не внутри CAS.
	MarkNotified(ctx context.Context, orderID string) error

	// MarkAccessGranted выполняет переход PAID -> ACCESS_GRANTED.
	MarkAccessGranted(ctx context.Context, orderID string) error

	// ListStalePending возвращает ID pending-заказов старше olderThan.
	// Гонка с поздним webhook'ом безопасна: и sweep, и webhook идут
	// через условные UPDATE'ы, оплаченный заказ sweep не тронет.
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]string, error)

	// FindByTipster возвращает заказы типстера с пагинацией,
	// новые первыми.
	FindByTipster(ctx context.Context, tipsterID string, filter OrderFilter, offset, limit int) ([]*entities.Order, error)

	// CountByTipster возвращает количество заказов под тем же фильтром.
	CountByTipster(ctx context.Context, tipsterID string, filter OrderFilter) (int64, error)

	// AggregateSales считает итоги продаж типстера за период.
	AggregateSales(ctx context.Context, tipsterID string, from, to time.Time) (SalesTotals, error)
}

// OrderFilter определяет критерии фильтрации для заказов.
type OrderFilter struct {
	Status    *entities.OrderStatus     // Фильтр по статусу
	ProductID *string                   // Фильтр по продукту
	Provider  *entities.PaymentProvider // Фильтр по шлюзу
	From      *time.Time                // Созданы не раньше
	To        *time.Time                // Созданы не позже
}

// SalesTotals - агрегированные итоги продаж по валютам.
// Ключ карты - код валюты, значение - сумма в центах.
type SalesTotals struct {
	OrdersPaid    int64
	TotalsByCCY   map[string]int64
	PendingOrders int64
}

// ProductRepository определяет контракт для хранения продуктов.
type ProductRepository interface {
	// Save сохраняет продукт (create or update).
	Save(ctx context.Context, product *entities.Product) error

	// FindByID загружает продукт по ID.
	FindByID(ctx context.Context, id string) (*entities.Product, error)

	// FindByTipster возвращает продукты типстера.
	FindByTipster(ctx context.Context, tipsterID string, activeOnly bool) ([]*entities.Product, error)
}

// TipsterRepository определяет контракт для хранения профилей типстеров.
type TipsterRepository interface {
	// Save сохраняет профиль.
	Save(ctx context.Context, profile *entities.TipsterProfile) error

	// FindByID загружает профиль по ID.
	FindByID(ctx context.Context, id string) (*entities.TipsterProfile, error)

	// FindByTelegramUserID находит профиль по Telegram-идентификатору.
	FindByTelegramUserID(ctx context.Context, telegramUserID string) (*entities.TipsterProfile, error)
}
