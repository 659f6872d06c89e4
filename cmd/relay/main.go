// Relay - отдельный процесс доставки outbox-событий в NATS.
//
// Запускается рядом с API: API пишет события в outbox в той же
// транзакции, что и бизнес-данные, relay асинхронно доводит их до
// брокера. Несколько реплик relay безопасны (SKIP LOCKED).
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/config"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/messaging"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/infrastructure/persistence/postgres"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	logger.Setup(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	lg := slog.Default()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := postgres.NewConnectionPool(ctx, postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		Database:        cfg.Database.Database,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConnections,
		MinConns:        cfg.Database.MinConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	})
	cancel()
	if err != nil {
		lg.Error("Failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	conn, err := messaging.Connect(cfg.NATS.URL, lg)
	if err != nil {
		lg.Error("Failed to connect to NATS", slog.Any("error", err))
		os.Exit(1)
	}
	defer conn.Drain()

	publisher := messaging.NewNATSPublisher(conn, cfg.NATS.SubjectPrefix, lg)
	relay := messaging.NewRelay(
		postgres.NewOutboxRepository(pool),
		postgres.NewUnitOfWork(pool),
		publisher,
		lg,
	)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := relay.Run(runCtx); err != nil && runCtx.Err() == nil {
		lg.Error("Relay exited with error", slog.Any("error", err))
		os.Exit(1)
	}

	lg.Info("Relay stopped gracefully")
}
