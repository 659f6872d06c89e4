package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/bleachgamermata-max/Proyecto-Antia/internal/config"
	"github.com/bleachgamermata-max/Proyecto-Antia/internal/container"
)

func main() {
	// .env удобен в разработке; в production переменные приходят из окружения
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	c := container.New(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := c.Initialize(ctx); err != nil {
		cancel()
		log.Fatal("Failed to initialize container: ", err)
	}
	cancel()

	if err := c.Run(); err != nil {
		c.Logger().Error("Server error", slog.Any("error", err))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		_ = c.Shutdown(shutdownCtx)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := c.Shutdown(shutdownCtx); err != nil {
		c.Logger().Error("Shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	c.Logger().Info("Server stopped gracefully")
}
