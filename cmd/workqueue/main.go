package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/uabjabborov/tg-work-queue/internal/bot"
	"github.com/uabjabborov/tg-work-queue/internal/config"
	"github.com/uabjabborov/tg-work-queue/internal/scheduler"
	"github.com/uabjabborov/tg-work-queue/internal/storage"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("workqueue failed", "err", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	repo, err := storage.OpenSQLite(cfg.DBPath())
	if err != nil {
		return err
	}
	defer repo.Close()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return fmt.Errorf("telegram api: %w", err)
	}

	b := bot.New(api, repo, logger)
	engine := scheduler.NewEngine(b.SendReminder)
	b.AttachScheduler(engine)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := b.SeedReminders(ctx); err != nil {
		return err
	}
	engine.Start()
	defer engine.Stop()

	logger.Info("bot started", "username", api.Self.UserName)
	b.Run(ctx)
	return nil
}
