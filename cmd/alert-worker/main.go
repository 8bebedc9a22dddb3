// Package main is the entry point for the frostwatch alert worker.
//
// On a fixed cadence it predicts tomorrow's minimum temperature at the
// primary station and delivers frost alerts to the configured Telegram chats
// when the forecast crosses an alert threshold.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"frostwatch/internal/alert"
	"frostwatch/internal/app"
	"frostwatch/internal/config"
	"frostwatch/internal/external"
	"frostwatch/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	logger.Info("frostwatch alert worker starting",
		"environment", cfg.Environment,
		"check_interval", cfg.Alerts.CheckInterval.String(),
		"chats", len(cfg.Alerts.ChatIDs),
	)

	if cfg.Alerts.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN must be set for the alert worker")
	}
	if len(cfg.Alerts.ChatIDs) == 0 {
		return fmt.Errorf("ALERT_CHAT_IDS must list at least one chat")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, cleanup, err := app.BuildEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	base := external.NewBaseClient(
		&http.Client{Timeout: cfg.Alerts.RequestTimeout},
		"telegram",
		external.DefaultRetryPolicy(),
		"frostwatch-alert-worker",
	)
	sender, err := alert.NewTelegramClient(base, cfg.Alerts.TelegramBaseURL, cfg.Alerts.TelegramToken)
	if err != nil {
		return fmt.Errorf("creating telegram client: %w", err)
	}

	notifier, err := alert.NewNotifier(eng, sender, cfg.Alerts.ChatIDs, types.RealClock{}, logger)
	if err != nil {
		return fmt.Errorf("creating notifier: %w", err)
	}

	if err := notifier.Run(ctx, cfg.Alerts.CheckInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("alert worker stopped")
	return nil
}
