// Package messaging - доставка outbox-событий в NATS.
//
// Publisher публикует уже сериализованные конверты из outbox-таблицы,
// Relay опрашивает outbox и прогоняет записи через Publisher.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
)

const defaultSubjectPrefix = "antia.events"

// EntryPublisher публикует одну outbox-запись во внешний брокер.
type EntryPublisher interface {
	PublishEntry(ctx context.Context, entry ports.OutboxEntry) error
}

// NATSPublisher публикует события в NATS.
//
// Subject строится из типа события: antia.events.order.paid.
// Подписчики фильтруют wildcard'ами (antia.events.order.*).
type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *slog.Logger
}

var _ EntryPublisher = (*NATSPublisher)(nil)

// Connect устанавливает соединение с NATS с автоматическим reconnect.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("antia-relay"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return conn, nil
}

// NewNATSPublisher создаёт publisher поверх установленного соединения.
func NewNATSPublisher(conn *nats.Conn, subjectPrefix string, logger *slog.Logger) *NATSPublisher {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}
	return &NATSPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

// PublishEntry отправляет конверт события в NATS.
func (p *NATSPublisher) PublishEntry(ctx context.Context, entry ports.OutboxEntry) error {
	subject := p.subjectPrefix + "." + entry.EventType

	if err := p.conn.Publish(subject, entry.Payload); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", entry.EventID, subject, err)
	}

	p.logger.DebugContext(ctx, "event published",
		slog.String("event_id", entry.EventID),
		slog.String("subject", subject),
	)
	return nil
}
