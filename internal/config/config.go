package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	LogLevel           string
	HTTPListenAddr     string
	DBDriver           string
	DatabaseURL        string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTLS           bool
	NLUProvider        string
	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	NLUTimeout         time.Duration
	NLUMaxOutputTokens int
	NLURateLimit       int
	NLURateWindow      time.Duration
	OllamaURL          string
	OllamaModel        string
	OpenAIAPIKey       string
	OpenAIModel        string
	SessionTTL         time.Duration
	SellMarkup         float64
	MetricsNamespace   string
}

// Load returns configuration populated from environment variables with fallbacks.
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:           getenvDefault("APP_ENV", "development"),
		LogLevel:         getenvDefault("LOG_LEVEL", "info"),
		HTTPListenAddr:   getenvDefault("HTTP_LISTEN_ADDR", ":8080"),
		DBDriver:         strings.ToLower(getenvDefault("DB_DRIVER", "postgres")),
		DatabaseURL:      trimmedEnv("DATABASE_URL"),
		RedisAddr:        getenvDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    trimmedEnv("REDIS_PASSWORD"),
		NLUProvider:      strings.ToLower(getenvDefault("NLU_PROVIDER", "gemini")),
		GeminiAPIKey:     trimmedEnv("GEMINI_API_KEY"),
		GeminiModel:      getenvDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiBaseURL:    getenvDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OllamaURL:        getenvDefault("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:      getenvDefault("OLLAMA_MODEL", "llama3.2"),
		OpenAIAPIKey:     trimmedEnv("OPENAI_API_KEY"),
		OpenAIModel:      getenvDefault("OPENAI_MODEL", "gpt-4o-mini"),
		MetricsNamespace: getenvDefault("METRICS_NAMESPACE", "bot_inventory"),
	}

	var err error
	if cfg.NLUTimeout, err = time.ParseDuration(getenvDefault("GEMINI_TIMEOUT", "20s")); err != nil {
		return nil, fmt.Errorf("invalid GEMINI_TIMEOUT duration: %w", err)
	}
	if cfg.NLURateWindow, err = time.ParseDuration(getenvDefault("NLU_RATE_WINDOW", "1m")); err != nil {
		return nil, fmt.Errorf("invalid NLU_RATE_WINDOW duration: %w", err)
	}
	if cfg.SessionTTL, err = time.ParseDuration(getenvDefault("SESSION_TTL", "168h")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL duration: %w", err)
	}

	if cfg.NLUMaxOutputTokens, err = strconv.Atoi(getenvDefault("NLU_MAX_OUTPUT_TOKENS", "400")); err != nil {
		return nil, fmt.Errorf("invalid NLU_MAX_OUTPUT_TOKENS value: %w", err)
	}
	if cfg.NLURateLimit, err = strconv.Atoi(getenvDefault("NLU_RATE_LIMIT", "0")); err != nil {
		return nil, fmt.Errorf("invalid NLU_RATE_LIMIT value: %w", err)
	}
	if cfg.NLURateLimit < 0 {
		cfg.NLURateLimit = 0
	}

	if redisDBStr := getenvDefault("REDIS_DB", "0"); redisDBStr != "" {
		db, convErr := strconv.Atoi(redisDBStr)
		if convErr != nil {
			return nil, fmt.Errorf("invalid REDIS_DB value: %w", convErr)
		}
		cfg.RedisDB = db
	}
	cfg.RedisTLS = strings.EqualFold(getenvDefault("REDIS_TLS", "false"), "true")

	markup, convErr := strconv.ParseFloat(getenvDefault("SELL_MARKUP", "1.2"), 64)
	if convErr != nil {
		return nil, fmt.Errorf("invalid SELL_MARKUP value: %w", convErr)
	}
	if markup < 1 {
		markup = 1
	}
	cfg.SellMarkup = markup

	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", cfg.DBDriver)
	}
	if cfg.DatabaseURL == "" {
		if cfg.DBDriver != "sqlite" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		cfg.DatabaseURL = "file:data/inventory.db?_pragma=foreign_keys(1)"
	}

	switch cfg.NLUProvider {
	case "gemini", "ollama", "openai", "none":
	default:
		return nil, fmt.Errorf("unsupported NLU_PROVIDER %q", cfg.NLUProvider)
	}

	cfg.GeminiBaseURL = strings.TrimRight(cfg.GeminiBaseURL, "/")

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func getenvDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		if trimmed := strings.TrimSpace(val); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func trimmedEnv(key string) string {
	if val, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(val)
	}
	return ""
}
