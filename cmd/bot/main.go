package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"product-page-studio/internal/app"
	"product-page-studio/internal/bot"
	"product-page-studio/internal/config"
	"product-page-studio/internal/httpclient"
	"product-page-studio/internal/mediagroup"
	"product-page-studio/internal/telegram"
	"product-page-studio/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := config.NewLogger(cfg)

	if cfg.TelegramToken == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tgHTTP := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
	})

	tg, err := telegram.New(telegram.Options{
		Token:            cfg.TelegramToken,
		HTTPClient:       tgHTTP,
		Logger:           logger,
		Debug:            cfg.Debug,
		MaxDownloadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	sessions, err := app.NewSessions(ctx, cfg, logger)
	if err != nil {
		logger.Error("gemini init failed", "err", err)
		os.Exit(1)
	}
	defer sessions.Close()

	handler := bot.New(bot.Options{
		Messenger: tg,
		Sessions:  sessions,
		Messages:  workflow.MessagesFor(cfg.Locale),
		Logger:    logger,
	})

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onAlbum := func(album mediagroup.Album) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			if err := handler.HandleAlbum(ctx, album); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("album handling failed", "err", err)
			}
		}()
	}

	albums := mediagroup.New(mediagroup.Options{
		Debounce: cfg.MediaGroupDebounce,
		OnFlush:  onAlbum,
	})
	defer albums.Close()
	handler.SetAlbumAggregator(albums)

	logger.Info("bot started", "username", tg.Username(), "backend", cfg.GeminiBackend)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				if err := handler.HandleUpdate(ctx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}
