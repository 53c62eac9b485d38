package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"product-page-studio/internal/app"
	"product-page-studio/internal/config"
	"product-page-studio/internal/web"
	"product-page-studio/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := config.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := app.NewSessions(ctx, cfg, logger)
	if err != nil {
		logger.Error("gemini init failed", "err", err)
		os.Exit(1)
	}
	defer sessions.Close()

	studio := web.New(web.Options{
		Sessions:       sessions,
		Messages:       workflow.MessagesFor(cfg.Locale),
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
		MaxConcurrent:  cfg.MaxConcurrent,
		SessionTTL:     cfg.SessionTTL,
	})

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           studio.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	logger.Info("web started", "addr", cfg.WebAddr, "backend", cfg.GeminiBackend)
	if err := serve(ctx, srv, studio, logger, 15*time.Second); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

// serve runs srv until ctx ends, then abandons running generations and waits
// for open connections to drain before returning.
func serve(ctx context.Context, srv *http.Server, studio *web.Server, logger *slog.Logger, grace time.Duration) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return serveListener(ctx, srv, ln, studio, logger, grace)
}

func serveListener(ctx context.Context, srv *http.Server, ln net.Listener, studio *web.Server, logger *slog.Logger, grace time.Duration) error {
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()

		if err := studio.Shutdown(shutdownCtx); err != nil {
			logger.Warn("generations did not finish", "err", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", "err", err)
		}
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-drained
	return nil
}
