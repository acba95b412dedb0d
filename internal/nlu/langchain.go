package nlu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"bot-inventory/internal/metrics"
)

// LangChainConfig selects a langchaingo-backed provider.
type LangChainConfig struct {
	Provider        string // "ollama" or "openai"
	Model           string
	ServerURL       string
	APIKey          string
	Timeout         time.Duration
	MaxOutputTokens int
}

// LangChainClient adapts any langchaingo model to Completer.
type LangChainClient struct {
	name      string
	model     llms.Model
	logger    *slog.Logger
	metrics   *metrics.Metrics
	timeout   time.Duration
	maxTokens int
}

// NewLangChainClient builds the provider named in cfg.
func NewLangChainClient(cfg LangChainConfig, logger *slog.Logger, m *metrics.Metrics) (*LangChainClient, error) {
	var (
		model llms.Model
		err   error
	)
	switch cfg.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.ServerURL))
		}
		model, err = ollama.New(opts...)
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai provider needs an API key")
		}
		opts := []openai.Option{openai.WithToken(cfg.APIKey), openai.WithModel(cfg.Model)}
		if cfg.ServerURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.ServerURL))
		}
		model, err = openai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported langchain provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", cfg.Provider, err)
	}
	return WrapModel(cfg.Provider, model, cfg.Timeout, cfg.MaxOutputTokens, logger, m), nil
}

// WrapModel adapts an already constructed langchaingo model.
func WrapModel(name string, model llms.Model, timeout time.Duration, maxTokens int, logger *slog.Logger, m *metrics.Metrics) *LangChainClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}
	return &LangChainClient{
		name:      name,
		model:     model,
		logger:    logger.With("component", "nlu_"+name),
		metrics:   m,
		timeout:   timeout,
		maxTokens: maxTokens,
	}
}

// Name identifies the provider.
func (c *LangChainClient) Name() string { return c.name }

// Complete runs one deterministic completion within the timeout.
func (c *LangChainClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.model == nil {
		return "", ErrUpstreamUnavailable
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(reqCtx, c.model, prompt,
		llms.WithTemperature(0),
		llms.WithMaxTokens(c.maxTokens),
	)
	status := "ok"
	if err != nil {
		status = "error"
	}
	if c.metrics != nil {
		c.metrics.NLULatency.WithLabelValues(c.name, status).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", ErrUpstreamTimeout
		}
		return "", &UpstreamError{Provider: c.name, Err: err}
	}
	return text, nil
}
