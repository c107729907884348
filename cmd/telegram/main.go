package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nutribudget"
	"nutribudget/app"
	"nutribudget/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("SETUP: Bot exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	var tgCfg nutribudget.TelegramConfig
	if err := app.Decode(&tgCfg); err != nil {
		return err
	}
	if tgCfg.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	a, err := app.Build(ctx, cfg, app.Options{GenerationLogger: nutribudget.NewNoOpGenerationLogger()})
	if err != nil {
		return err
	}
	defer a.Close()

	api, err := tgbotapi.NewBotAPI(tgCfg.Token)
	if err != nil {
		return err
	}

	bot, err := telegram.NewBot(api, a.Service, tgCfg.AllowedUsers)
	if err != nil {
		return err
	}
	return telegram.Run(ctx, api, bot, tgCfg.PollTimeout)
}
