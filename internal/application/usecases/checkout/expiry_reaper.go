package checkout

import (
	"context"
	"log/slog"
	"time"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/application/ports"
)

const (
	defaultSessionTTL    = 30 * time.Minute
	defaultSweepInterval = 5 * time.Minute
	defaultSweepBatch    = 100
)

// ExpiryReaper закрывает брошенные pending-заказы.
//
// Stripe присылает checkout.session.expired, Redsys же молчит, если
// покупатель просто ушёл со страницы оплаты. Reaper - страховочный
// механизм: периодически переводит устаревшие PENDING-заказы в EXPIRED
// через те же условные UPDATE'ы, что и webhook-путь, поэтому гонка с
// поздним платежом безопасна - оплаченный заказ sweep не тронет.
type ExpiryReaper struct {
	orderRepo ports.OrderRepository
	settler   *Settler
	logger    *slog.Logger

	sessionTTL    time.Duration
	sweepInterval time.Duration
	batchSize     int
}

// ReaperOption настраивает ExpiryReaper.
type ReaperOption func(*ExpiryReaper)

// WithSessionTTL меняет возраст, после которого pending-заказ считается брошенным.
func WithSessionTTL(d time.Duration) ReaperOption {
	return func(r *ExpiryReaper) { r.sessionTTL = d }
}

// WithSweepInterval меняет период sweep'а.
func WithSweepInterval(d time.Duration) ReaperOption {
	return func(r *ExpiryReaper) { r.sweepInterval = d }
}

// WithSweepBatchSize меняет размер пачки за цикл.
func WithSweepBatchSize(n int) ReaperOption {
	return func(r *ExpiryReaper) { r.batchSize = n }
}

// NewExpiryReaper создаёт reaper.
func NewExpiryReaper(orderRepo ports.OrderRepository, settler *Settler, logger *slog.Logger, opts ...ReaperOption) *ExpiryReaper {
	r := &ExpiryReaper{
		orderRepo:     orderRepo,
		settler:       settler,
		logger:        logger,
		sessionTTL:    defaultSessionTTL,
		sweepInterval: defaultSweepInterval,
		batchSize:     defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run крутит sweep-цикл до отмены контекста.
func (r *ExpiryReaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "expiry reaper started",
		slog.Duration("session_ttl", r.sessionTTL),
		slog.Duration("sweep_interval", r.sweepInterval),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "expiry reaper stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := r.SweepOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "expiry sweep cycle failed", slog.Any("error", err))
			}
		}
	}
}

// SweepOnce истекает одну пачку устаревших pending-заказов.
//
// Каждый заказ проводится через Settler.SettleExpired отдельно: ошибка
// одного заказа не блокирует остальную пачку.
func (r *ExpiryReaper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-r.sessionTTL)

	ids, err := r.orderRepo.ListStalePending(ctx, cutoff, r.batchSize)
	if err != nil {
		return err
	}

	expired := 0
	for _, id := range ids {
		res, err := r.settler.SettleExpired(ctx, id)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to expire stale order",
				slog.String("order_id", id),
				slog.Any("error", err),
			)
			continue
		}
		if res.Won {
			expired++
		}
	}

	if expired > 0 {
		r.logger.InfoContext(ctx, "stale orders expired", slog.Int("count", expired))
	}
	return nil
}
