package messaging

import (
	"context"
	"log/slog"
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 50
)

// Relay - poller транзакционного outbox'а.
//
// Каждый цикл выбирает PENDING-записи (FOR UPDATE SKIP LOCKED внутри
// транзакции, поэтому реплики relay не конфликтуют), публикует их и
// помечает PUBLISHED. Неудачная публикация помечается FAILED с причиной
// и не блокирует остальную пачку.
type Relay struct {
	outbox    ports.OutboxRepository
	uow       ports.UnitOfWork
	publisher EntryPublisher
	logger    *slog.Logger

	pollInterval time.Duration
	batchSize    int
}

// RelayOption настраивает Relay.
type RelayOption func(*Relay)

// WithPollInterval меняет период опроса outbox'а.
func WithPollInterval(d time.Duration) RelayOption {
	return func(r *Relay) { r.pollInterval = d }
}

// WithBatchSize меняет размер пачки за цикл.
func WithBatchSize(n int) RelayOption {
	return func(r *Relay) { r.batchSize = n }
}

// NewRelay создаёт outbox relay.
func NewRelay(outbox ports.OutboxRepository, uow ports.UnitOfWork, publisher EntryPublisher, logger *slog.Logger, opts ...RelayOption) *Relay {
	r := &Relay{
		outbox:       outbox,
		uow:          uow,
		publisher:    publisher,
		logger:       logger,
		pollInterval: defaultPollInterval,
		batchSize:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run крутит цикл публикации до отмены контекста.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started",
		slog.Duration("poll_interval", r.pollInterval),
		slog.Int("batch_size", r.batchSize),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.DrainOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "outbox drain cycle failed", slog.Any("error", err))
			}
		}
	}
}

// DrainOnce публикует одну пачку PENDING-событий.
//
// Выборка и смена статусов происходят в одной транзакции: SKIP LOCKED
// держит записи за этим процессом, пока не расставлены статусы.
func (r *Relay) DrainOnce(ctx context.Context) error {
	return r.uow.Execute(ctx, func(txCtx context.Context) error {
		entries, err := r.outbox.FindUnpublished(txCtx, r.batchSize)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if err := r.publisher.PublishEntry(ctx, entry); err != nil {
				r.logger.WarnContext(ctx, "event publish failed",
					slog.String("event_id", entry.EventID),
					slog.Any("error", err),
				)
				if err := r.outbox.MarkFailed(txCtx, entry.EventID, err.Error()); err != nil {
					return err
				}
				continue
			}

			if err := r.outbox.MarkPublished(txCtx, entry.EventID); err != nil {
				return err
			}
		}

		if len(entries) > 0 {
			r.logger.InfoContext(ctx, "outbox batch drained", slog.Int("count", len(entries)))
		}
		return nil
	})
}
