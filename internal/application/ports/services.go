// Package ports - вспомогательные сервисы инфраструктуры.
package ports

import (
	"context"
	"time"
)

// ProcessedEventStore - дедупликация событий платёжных шлюзов.
//
// Шлюзы доставляют webhook'и at-least-once. Условный UPDATE статуса
// уже гарантирует идемпотентность бизнес-логики; этот store - дешёвый
// первый барьер, чтобы повторные доставки не ходили в БД вообще.
type ProcessedEventStore interface {
	// MarkProcessed атомарно помечает событие обработанным.
	// Возвращает first=true только для первого вызова с этим ID.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (first bool, err error)

	// Unmark снимает метку с события. Вызывается, когда обработка после
	// MarkProcessed упала с ретраебл-ошибкой: иначе повторная доставка
	// от шлюза срежется на метке и событие не будет проведено никогда.
	Unmark(ctx context.Context, eventID string) error
}

// GeoInfo - результат геолокации по IP.
type GeoInfo struct {
	CountryCode string // ISO 3166-1 alpha-2
}

// Geolocator определяет контракт для геолокации покупателя.
// Используется при выборе платёжного шлюза: испанские IP идут в Redsys.
type Geolocator interface {
	// Locate возвращает страну по IP. Для приватных и неопределимых
	// адресов реализация возвращает страну по умолчанию, не ошибку.
	Locate(ctx context.Context, ip string) (GeoInfo, error)
}
