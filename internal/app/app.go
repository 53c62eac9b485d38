package app

import (
	"context"
	"log/slog"
	"net/http"

	"product-page-studio/internal/config"
	"product-page-studio/internal/gemini"
	"product-page-studio/internal/httpclient"
	"product-page-studio/internal/session"
	"product-page-studio/internal/workflow"
)

// NewGenerator builds the Gemini backend selected by GEMINI_BACKEND.
func NewGenerator(ctx context.Context, cfg config.Config, httpClient *http.Client, logger *slog.Logger) (workflow.Generator, error) {
	opts := gemini.Options{
		APIKey:        cfg.GeminiAPIKey,
		BaseURL:       cfg.GeminiBaseURL,
		APIVersion:    cfg.GeminiAPIVersion,
		AnalysisModel: cfg.AnalysisModel,
		ImageModel:    cfg.ImageModel,
		CopyLanguage:  cfg.CopyLanguage,
		HTTPClient:    httpClient,
		Logger:        logger,
	}

	if cfg.GeminiBackend == config.BackendSDK {
		client, err := gemini.NewSDK(ctx, opts)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return gemini.New(opts), nil
}

// NewSessions wires one workflow controller per session key on top of the
// configured generator.
func NewSessions(ctx context.Context, cfg config.Config, logger *slog.Logger) (*session.Store, error) {
	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4:    cfg.PreferIPv4,
		Timeout:       cfg.HTTPTimeout,
		RatePerMinute: cfg.GeminiRatePerMinute,
	})

	gen, err := NewGenerator(ctx, cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	messages := workflow.MessagesFor(cfg.Locale)
	return session.NewStore(session.Options{
		TTL:    cfg.SessionTTL,
		Logger: logger,
		NewController: func() *workflow.Controller {
			return workflow.New(workflow.Options{
				Generator:      gen,
				Logger:         logger,
				Messages:       messages,
				MaxUploadBytes: cfg.MaxUploadBytes,
				RequestTimeout: cfg.RequestTimeout,
			})
		},
	}), nil
}
