// Package postgres - OrderRepository implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/entities"
	domainErrors "github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/errors"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

// Compile-time check: OrderRepository implements ports.OrderRepository
var _ ports.OrderRepository = (*OrderRepository)(nil)

// OrderRepository реализует ports.OrderRepository с использованием PostgreSQL.
//
// Thread-safe: использует connection pool.
// Transaction-aware: автоматически использует транзакцию из context если есть.
//
// Переходы статуса выполняются условными UPDATE'ами. Гонку конкурентных
// путей reconciliation решает БД: выигрывает тот, чей UPDATE реально
// изменил строку.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository создаёт новый OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const orderColumns = `
	id, product_id, tipster_id,
	amount_cents, currency,
	buyer_email, buyer_phone, telegram_user_id, telegram_username, is_guest,
	status, provider, provider_session_id, payment_method, notified,
	paid_at, created_at, updated_at
`

// Insert сохраняет новый заказ.
func (r *OrderRepository) Insert(ctx context.Context, order *entities.Order) error {
	q := r.getQuerier(ctx)

	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	buyer := order.Buyer()
	_, err := q.Exec(ctx, query,
		order.ID(),
		order.ProductID(),
		order.TipsterID(),
		order.Amount().Cents(),
		order.Amount().Currency().Code(),
		nullIfEmpty(buyer.Email),
		nullIfEmpty(buyer.Phone),
		nullIfEmpty(buyer.TelegramUserID),
		nullIfEmpty(buyer.TelegramUsername),
		order.IsGuest(),
		string(order.Status()),
		nullIfEmpty(string(order.Provider())),
		nullIfEmpty(order.ProviderSessionID()),
		nullIfEmpty(order.PaymentMethod()),
		order.Notified(),
		order.PaidAt(),
		order.CreatedAt(),
		order.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err, "orders_pkey") {
			return domainErrors.ErrEntityAlreadyExists
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// FindByID загружает заказ по ID.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entities.Order, error) {
	q := r.getQuerier(ctx)

	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}
	return order, nil
}

// FindByProviderSessionID находит заказ по ссылке платёжного шлюза.
func (r *OrderRepository) FindByProviderSessionID(ctx context.Context, sessionID string) (*entities.Order, error) {
	q := r.getQuerier(ctx)

	row := q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE provider_session_id = $1`, sessionID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrEntityNotFound
		}
		return nil, fmt.Errorf("failed to find order by session: %w", err)
	}
	return order, nil
}

// AttachSession записывает ссылку на сессию шлюза для pending-заказа.
func (r *OrderRepository) AttachSession(ctx context.Context, order *entities.Order) error {
	q := r.getQuerier(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE orders
		SET provider = $2, provider_session_id = $3, updated_at = $4
		WHERE id = $1 AND status = 'PENDING'
	`,
		order.ID(),
		string(order.Provider()),
		order.ProviderSessionID(),
		order.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to attach session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotPending
	}
	return nil
}

// MarkPaidIfPending выполняет атомарный переход PENDING -> PAID.
//
// Идемпотентность всех путей reconciliation держится на этом запросе:
// только один конкурентный вызов получит RowsAffected = 1.
func (r *OrderRepository) MarkPaidIfPending(ctx context.Context, order *entities.Order) (bool, error) {
	q := r.getQuerier(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE orders
		SET status = 'PAID',
		    provider = $2,
		    provider_session_id = COALESCE(NULLIF($3, ''), provider_session_id),
		    payment_method = $4,
		    paid_at = $5,
		    updated_at = $5
		WHERE id = $1 AND status = 'PENDING'
	`,
		order.ID(),
		string(order.Provider()),
		order.ProviderSessionID(),
		order.PaymentMethod(),
		time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkNotified фиксирует, что fan-out после оплаты фактически выполнен.
// Пишется отдельным UPDATE после уведомлений, а не внутри CAS: флаг
// отражает факт, а не намерение победителя.
func (r *OrderRepository) MarkNotified(ctx context.Context, orderID string) error {
	q := r.getQuerier(ctx)

	if _, err := q.Exec(ctx, `
		UPDATE orders
		SET notified = TRUE, updated_at = $2
		WHERE id = $1
	`, orderID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark order notified: %w", err)
	}
	return nil
}

// MarkExpiredIfPending выполняет атомарный переход PENDING -> EXPIRED.
func (r *OrderRepository) MarkExpiredIfPending(ctx context.Context, orderID string) (bool, error) {
	q := r.getQuerier(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE orders
		SET status = 'EXPIRED', updated_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`, orderID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to mark order expired: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// MarkAccessGranted выполняет переход PAID -> ACCESS_GRANTED.
func (r *OrderRepository) MarkAccessGranted(ctx context.Context, orderID string) error {
	q := r.getQuerier(ctx)

	tag, err := q.Exec(ctx, `
		UPDATE orders
		SET status = 'ACCESS_GRANTED', updated_at = $2
		WHERE id = $1 AND status = 'PAID'
	`, orderID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark access granted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotPaid
	}
	return nil
}

// ListStalePending возвращает ID pending-заказов, созданных раньше olderThan.
// Используется фоновым reaper'ом: Redsys не присылает уведомление об
// истечении сессии, брошенные заказы закрывает только sweep.
func (r *OrderRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	q := r.getQuerier(ctx)

	rows, err := q.Query(ctx, `
		SELECT id FROM orders
		WHERE status = 'PENDING' AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale pending orders: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// FindByTipster возвращает заказы типстера, новые первыми.
func (r *OrderRepository) FindByTipster(ctx context.Context, tipsterID string, filter ports.OrderFilter, offset, limit int) ([]*entities.Order, error) {
	q := r.getQuerier(ctx)

	where, args := buildOrderFilter(tipsterID, filter)
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT %s FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, orderColumns, where, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*entities.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// CountByTipster возвращает количество заказов под фильтром.
func (r *OrderRepository) CountByTipster(ctx context.Context, tipsterID string, filter ports.OrderFilter) (int64, error) {
	q := r.getQuerier(ctx)

	where, args := buildOrderFilter(tipsterID, filter)

	var count int64
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// AggregateSales считает итоги продаж типстера за период.
// PAID и ACCESS_GRANTED считаются оплаченными.
func (r *OrderRepository) AggregateSales(ctx context.Context, tipsterID string, from, to time.Time) (ports.SalesTotals, error) {
	q := r.getQuerier(ctx)

	totals := ports.SalesTotals{TotalsByCCY: make(map[string]int64)}

	rows, err := q.Query(ctx, `
		SELECT currency, COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM orders
		WHERE tipster_id = $1
		  AND status IN ('PAID', 'ACCESS_GRANTED')
		  AND ($2::timestamptz IS NULL OR paid_at >= $2)
		  AND paid_at <= $3
		GROUP BY currency
	`, tipsterID, nullIfZeroTime(from), to)
	if err != nil {
		return totals, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var currency string
		var count, sum int64
		if err := rows.Scan(&currency, &count, &sum); err != nil {
			return totals, fmt.Errorf("failed to scan sales row: %w", err)
		}
		totals.OrdersPaid += count
		totals.TotalsByCCY[currency] = sum
	}
	if err := rows.Err(); err != nil {
		return totals, err
	}

	err = q.QueryRow(ctx, `
		SELECT COUNT(*) FROM orders
		WHERE tipster_id = $1 AND status = 'PENDING'
	`, tipsterID).Scan(&totals.PendingOrders)
	if err != nil {
		return totals, fmt.Errorf("failed to count pending orders: %w", err)
	}

	return totals, nil
}

// buildOrderFilter строит WHERE-условие для фильтра заказов.
// Placeholder'ы нумеруются с $1, tipster_id всегда первый аргумент.
func buildOrderFilter(tipsterID string, filter ports.OrderFilter) (string, []any) {
	conditions := []string{"tipster_id = $1"}
	args := []any{tipsterID}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		conditions = append(conditions, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.Provider != nil {
		args = append(args, string(*filter.Provider))
		conditions = append(conditions, fmt.Sprintf("provider = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// scanOrder сканирует строку в domain entity Order.
// Единственная точка перевода snake_case колонок в доменную модель.
func scanOrder(scanner interface{ Scan(dest ...any) error }) (*entities.Order, error) {
	var (
		id, productID, tipsterID string
		amountCents              int64
		currencyCode             string
		buyerEmail               *string
		buyerPhone               *string
		telegramUserID           *string
		telegramUsername         *string
		isGuest                  bool
		status                   string
		provider                 *string
		providerSessionID        *string
		paymentMethod            *string
		notified                 bool
		paidAt                   *time.Time
		createdAt, updatedAt     time.Time
	)

	err := scanner.Scan(
		&id, &productID, &tipsterID,
		&amountCents, &currencyCode,
		&buyerEmail, &buyerPhone, &telegramUserID, &telegramUsername, &isGuest,
		&status, &provider, &providerSessionID, &paymentMethod, &notified,
		&paidAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	currency, err := valueobjects.NewCurrency(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("stored order has invalid currency %q: %w", currencyCode, err)
	}
	amount, err := valueobjects.NewMoneyFromCents(amountCents, currency)
	if err != nil {
		return nil, fmt.Errorf("stored order has invalid amount: %w", err)
	}

	return entities.ReconstructOrder(
		id, productID, tipsterID,
		amount,
		entities.BuyerContact{
			Email:            deref(buyerEmail),
			Phone:            deref(buyerPhone),
			TelegramUserID:   deref(telegramUserID),
			TelegramUsername: deref(telegramUsername),
		},
		isGuest,
		entities.OrderStatus(status),
		entities.PaymentProvider(deref(provider)),
		deref(providerSessionID),
		deref(paymentMethod),
		notified,
		paidAt,
		createdAt, updatedAt,
	)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
