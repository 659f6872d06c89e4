// Package ports - EventPublisher для публикации domain events.
//
// Pattern: Transactional Outbox + Publisher
// - Use cases пишут события в outbox в той же БД-транзакции
// - Отдельный relay-процесс читает outbox и публикует в NATS
package ports

import (
	"context"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/domain/events"
)

// EventPublisher определяет контракт для публикации domain events.
//
// Реализации:
// - Database Outbox (production, гарантия доставки)
// - In-memory (тесты)
type EventPublisher interface {
	// Publish публикует одно событие.
	//
	// Behaviour:
	// - At-least-once delivery (может быть дубликаты)
	// - Consumers должны быть идемпотентными!
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch публикует несколько событий за один вызов.
	// Если один event не удаётся опубликовать, вся batch должна провалиться.
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// OutboxRepository - интерфейс для Transactional Outbox Pattern.
//
// Transactional Outbox решает проблему:
// "Как гарантировать, что event опубликуется, если БД-транзакция успешна?"
//
// Решение:
// 1. В той же БД-транзакции сохраняем event в таблицу outbox
// 2. Relay-процесс читает outbox и публикует в NATS
// 3. После успешной публикации помечает event как published
type OutboxRepository interface {
	// Save сохраняет событие в outbox таблицу.
	// Должно выполняться в той же транзакции, что и бизнес-операция!
	Save(ctx context.Context, event events.DomainEvent) error

	// FindUnpublished возвращает события, которые ещё не опубликованы.
	FindUnpublished(ctx context.Context, limit int) ([]OutboxEntry, error)

	// MarkPublished помечает событие как опубликованное.
	MarkPublished(ctx context.Context, eventID string) error

	// MarkFailed помечает событие как failed после N неудачных попыток.
	MarkFailed(ctx context.Context, eventID string, reason string) error
}

// OutboxEntry - сериализованное событие из outbox таблицы.
// Relay публикует Payload как есть, тип события становится subject.
type OutboxEntry struct {
	EventID     string
	EventType   string
	AggregateID string
	Payload     []byte
}
