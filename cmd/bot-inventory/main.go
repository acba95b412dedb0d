package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bot-inventory/internal/auth"
	"bot-inventory/internal/cache"
	"bot-inventory/internal/config"
	"bot-inventory/internal/handlers"
	"bot-inventory/internal/ledger"
	"bot-inventory/internal/metrics"
	"bot-inventory/internal/nlu"
	"bot-inventory/internal/repo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	repository, err := repo.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer repository.Close()
	if err := repository.Migrate(ctx); err != nil {
		return err
	}

	rdb := cache.New(cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TLS:      cfg.RedisTLS,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(cfg.MetricsNamespace, reg)

	remote, err := newRemote(cfg, logger, m)
	if err != nil {
		return err
	}
	opts := []nlu.Option{
		nlu.WithLimiter(cache.NewWindowLimiter(rdb, "nlu", cfg.NLURateLimit, cfg.NLURateWindow, logger)),
	}
	if remote != nil {
		opts = append(opts, nlu.WithRemote(remote))
		logger.Info("remote intent extraction enabled", "provider", remote.Name())
	} else {
		logger.Info("remote intent extraction disabled, using local parser only")
	}
	interpreter := nlu.NewInterpreter(logger, m, opts...)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(handlers.Deps{
		Auth:        auth.NewService(repository, rdb, auth.Config{SessionTTL: cfg.SessionTTL}, logger),
		Ledger:      ledger.NewService(repository, cfg.SellMarkup, m, logger),
		Interpreter: interpreter,
		Metrics:     m,
		Gatherer:    reg,
		Health: map[string]handlers.HealthCheck{
			"database": repository.Ping,
			"redis":    rdb.Ping,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPListenAddr, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newRemote(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (nlu.Completer, error) {
	switch cfg.NLUProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set")
			return nil, nil
		}
		return nlu.NewGeminiClient(nlu.GeminiConfig{
			APIKey:          cfg.GeminiAPIKey,
			Model:           cfg.GeminiModel,
			BaseURL:         cfg.GeminiBaseURL,
			Timeout:         cfg.NLUTimeout,
			MaxOutputTokens: cfg.NLUMaxOutputTokens,
		}, logger, m), nil
	case "ollama", "openai":
		lc := nlu.LangChainConfig{
			Provider:        cfg.NLUProvider,
			Model:           cfg.OllamaModel,
			ServerURL:       cfg.OllamaURL,
			Timeout:         cfg.NLUTimeout,
			MaxOutputTokens: cfg.NLUMaxOutputTokens,
		}
		if cfg.NLUProvider == "openai" {
			lc.Model, lc.ServerURL, lc.APIKey = cfg.OpenAIModel, "", cfg.OpenAIAPIKey
		}
		client, err := nlu.NewLangChainClient(lc, logger, m)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	return nil, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", "bot-inventory")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
