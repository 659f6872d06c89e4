// Package dedup - Redis-хранилище обработанных webhook-событий.
//
// Это первый, дешёвый барьер идемпотентности: SETNX отсекает повторные
// доставки до похода в Postgres. Авторитетный барьер - условный UPDATE
// статуса заказа: недоступность Redis снижает эффективность, но не
// корректность.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
)

const keyPrefix = "processed_events:"

// RedisStore реализует ProcessedEventStore поверх Redis.
type RedisStore struct {
	client *redis.Client
}

var _ ports.ProcessedEventStore = (*RedisStore)(nil)

// NewRedisStore создаёт хранилище обработанных событий.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// MarkProcessed атомарно помечает событие обработанным.
// Возвращает true, если событие видим впервые.
func (s *RedisStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	first, err := s.client.SetNX(ctx, keyPrefix+eventID, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", err)
	}
	return first, nil
}

// Unmark снимает метку обработанности с события.
// Используется при откате: settlement упал после SETNX, и ретрай шлюза
// должен пройти барьер заново.
func (s *RedisStore) Unmark(ctx context.Context, eventID string) error {
	if err := s.client.Del(ctx, keyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("failed to unmark event: %w", err)
	}
	return nil
}

// NewClient создаёт Redis клиент.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// HealthCheck проверяет соединение с Redis.
func HealthCheck(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
