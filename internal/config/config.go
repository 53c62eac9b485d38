package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

type Config struct {
	GeminiAPIKey        string
	GeminiBackend       string
	GeminiBaseURL       string
	GeminiAPIVersion    string
	AnalysisModel       string
	ImageModel          string
	GeminiRatePerMinute int

	CopyLanguage string
	Locale       string

	LogLevel string
	Debug    bool

	PreferIPv4     bool
	HTTPTimeout    time.Duration
	RequestTimeout time.Duration

	WebAddr        string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	MaxConcurrent  int

	TelegramToken      string
	MediaGroupDebounce time.Duration
}

func Load() (Config, error) {
	cfg := Config{
		GeminiBackend:       strings.ToLower(strings.TrimSpace(getEnv("GEMINI_BACKEND", BackendREST))),
		GeminiBaseURL:       strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:    strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		AnalysisModel:       strings.TrimSpace(getEnv("GEMINI_ANALYSIS_MODEL", "gemini-3-flash-preview")),
		ImageModel:          strings.TrimSpace(getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image")),
		GeminiRatePerMinute: getEnvInt("GEMINI_RATE_PER_MINUTE", 0),
		CopyLanguage:        strings.TrimSpace(getEnv("COPY_LANGUAGE", "Korean")),
		Locale:              strings.ToLower(strings.TrimSpace(getEnv("LOCALE", "ko"))),
		LogLevel:            strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:               getEnvBool("DEBUG", false),
		PreferIPv4:          getEnvBool("PREFER_IPV4", true),
		HTTPTimeout:         time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 240)) * time.Second,
		WebAddr:             strings.TrimSpace(getEnv("WEB_ADDR", ":8080")),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,
		SessionTTL:          time.Duration(getEnvInt("SESSION_TTL_MINUTES", 120)) * time.Minute,
		MaxConcurrent:       getEnvInt("MAX_CONCURRENT", 4),
		MediaGroupDebounce:  time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
	}

	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))

	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	switch cfg.GeminiBackend {
	case BackendREST, BackendSDK:
	default:
		return Config{}, errors.New("GEMINI_BACKEND must be \"rest\" or \"sdk\"")
	}

	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.GeminiRatePerMinute < 0 {
		cfg.GeminiRatePerMinute = 0
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 240 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if cfg.Locale != "ko" && cfg.Locale != "en" {
		cfg.Locale = "ko"
	}

	return cfg, nil
}

// NewLogger builds the JSON logger shared by both entry points.
func NewLogger(cfg Config) *slog.Logger {
	return newLogger(os.Stdout, cfg.LogLevel)
}

func newLogger(w io.Writer, lvl string) *slog.Logger {
	level := slog.LevelInfo
	switch lvl {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
