// Package postgres - OutboxRepository для Transactional Outbox Pattern.
//
// 1. В той же транзакции, что и переход статуса заказа, сохраняем
//    событие в outbox
// 2. Relay-процесс (cmd/relay) читает события и публикует в NATS
// 3. После публикации помечает событие как published
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/events"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/valueobjects"
)

// Compile-time check
var _ ports.OutboxRepository = (*OutboxRepository)(nil)
var _ ports.EventPublisher = (*OutboxRepository)(nil) // outbox также является EventPublisher

// OutboxRepository реализует ports.OutboxRepository.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository создаёт новый OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Save сохраняет событие в outbox таблицу.
// Должно выполняться в той же транзакции, что и бизнес-операция!
func (r *OutboxRepository) Save(ctx context.Context, event events.DomainEvent) error {
	q := r.getQuerier(ctx)

	payload, err := serializeEvent(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}

	query := `
		INSERT INTO outbox (
			id, aggregate_type, aggregate_id, event_type,
			payload, status, created_at
		) VALUES ($1, $2, $3, $4, $5, 'PENDING', $6)
	`

	_, err = q.Exec(ctx, query,
		event.EventID(),
		aggregateType(event.EventType()),
		event.AggregateID(),
		event.EventType(),
		payload,
		event.OccurredAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save event to outbox: %w", err)
	}

	return nil
}

// Publish реализует EventPublisher через outbox.
// "Публикация" здесь - это запись в outbox; доставку в NATS выполняет relay.
func (r *OutboxRepository) Publish(ctx context.Context, event events.DomainEvent) error {
	return r.Save(ctx, event)
}

// PublishBatch сохраняет несколько событий.
// Атомарность batch'а обеспечивается вызовом внутри UnitOfWork.
func (r *OutboxRepository) PublishBatch(ctx context.Context, eventList []events.DomainEvent) error {
	for _, event := range eventList {
		if err := r.Save(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// FindUnpublished возвращает события, которые ещё не опубликованы.
// FOR UPDATE SKIP LOCKED позволяет запускать несколько relay-процессов
// без двойной публикации в рамках одного цикла.
func (r *OutboxRepository) FindUnpublished(ctx context.Context, limit int) ([]ports.OutboxEntry, error) {
	q := r.getQuerier(ctx)

	query := `
		SELECT id, aggregate_id, event_type, payload
		FROM outbox
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find unpublished events: %w", err)
	}
	defer rows.Close()

	var entries []ports.OutboxEntry
	for rows.Next() {
		var entry ports.OutboxEntry
		if err := rows.Scan(&entry.EventID, &entry.AggregateID, &entry.EventType, &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// MarkPublished помечает событие как опубликованное.
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	q := r.getQuerier(ctx)

	_, err := q.Exec(ctx, `
		UPDATE outbox
		SET status = 'PUBLISHED', published_at = $2
		WHERE id = $1
	`, eventID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	return nil
}

// MarkFailed помечает событие как failed.
func (r *OutboxRepository) MarkFailed(ctx context.Context, eventID string, reason string) error {
	q := r.getQuerier(ctx)

	_, err := q.Exec(ctx, `
		UPDATE outbox
		SET status = 'FAILED', last_error = $2
		WHERE id = $1
	`, eventID, reason)
	if err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

// aggregateType извлекает тип агрегата из типа события.
// "order.paid" -> "order", "checkout.session_created" -> "checkout".
func aggregateType(eventType string) string {
	if idx := strings.Index(eventType, "."); idx > 0 {
		return eventType[:idx]
	}
	return eventType
}

// eventEnvelope - JSON-представление события в outbox payload.
// Money сериализуется в cents + код валюты, entity-геттеры раскрываются
// в плоскую структуру.
type eventEnvelope struct {
	EventID     string         `json:"event_id"`
	EventType   string         `json:"event_type"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Data        map[string]any `json:"data"`
}

// serializeEvent сериализует domain event в JSON payload.
func serializeEvent(event events.DomainEvent) ([]byte, error) {
	envelope := eventEnvelope{
		EventID:     event.EventID().String(),
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Data:        eventData(event),
	}
	return json.Marshal(envelope)
}

// eventData раскрывает payload конкретного типа события.
func eventData(event events.DomainEvent) map[string]any {
	switch e := event.(type) {
	case *events.OrderCreated:
		return map[string]any{
			"product_id": e.ProductID,
			"tipster_id": e.TipsterID,
			"is_guest":   e.IsGuest,
			"amount":     moneyData(e.Amount),
		}
	case *events.OrderPaid:
		return map[string]any{
			"product_id":     e.ProductID,
			"tipster_id":     e.TipsterID,
			"provider":       e.Provider,
			"payment_method": e.PaymentMethod,
			"amount":         moneyData(e.Amount),
		}
	case *events.OrderExpired:
		return map[string]any{
			"product_id": e.ProductID,
			"provider":   e.Provider,
		}
	case *events.OrderAccessGranted:
		return map[string]any{
			"product_id":  e.ProductID,
			"channel_id":  e.ChannelID,
			"invite_link": e.InviteLink,
		}
	case *events.CheckoutSessionCreated:
		return map[string]any{
			"provider":   e.Provider,
			"session_id": e.SessionID,
		}
	default:
		return map[string]any{}
	}
}

func moneyData(m valueobjects.Money) map[string]any {
	return map[string]any{
		"cents":    m.Cents(),
		"currency": m.Currency().Code(),
	}
}
