package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-page-studio/internal/config"
	"product-page-studio/internal/gemini"
	"product-page-studio/internal/workflow"
)

func testConfig(backend string) config.Config {
	return config.Config{
		GeminiAPIKey:   "test-key",
		GeminiBackend:  backend,
		GeminiBaseURL:  "http://127.0.0.1:1",
		Locale:         "en",
		HTTPTimeout:    time.Second,
		RequestTimeout: time.Second,
		MaxUploadBytes: 1 << 20,
		SessionTTL:     time.Minute,
	}
}

func TestNewGeneratorSelectsBackend(t *testing.T) {
	ctx := context.Background()

	gen, err := NewGenerator(ctx, testConfig(config.BackendREST), http.DefaultClient, nil)
	require.NoError(t, err)
	assert.IsType(t, &gemini.Client{}, gen)

	gen, err = NewGenerator(ctx, testConfig(config.BackendSDK), http.DefaultClient, nil)
	require.NoError(t, err)
	assert.IsType(t, &gemini.SDKClient{}, gen)
}

func TestNewSessionsUsesLocale(t *testing.T) {
	store, err := NewSessions(context.Background(), testConfig(config.BackendREST), nil)
	require.NoError(t, err)
	defer store.Close()

	ctrl := store.Get("a")
	assert.Equal(t, "en", ctrl.Messages().Lang)
	assert.Equal(t, workflow.PhaseIdle, ctrl.Snapshot().Phase)
}
