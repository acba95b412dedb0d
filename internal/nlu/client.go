package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bot-inventory/internal/metrics"
)

const (
	defaultGeminiBase      = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel     = "gemini-1.5-flash"
	defaultTimeout         = 20 * time.Second
	defaultMaxOutputTokens = 400
	maxErrorBody           = 512
)

// Completer sends a prompt to a text-generation provider and returns the raw completion.
type Completer interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig holds the credentials and limits of the Gemini extractor.
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	MaxOutputTokens int
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	timeout    time.Duration
	maxTokens  int
}

// NewGeminiClient creates a Gemini client. An empty API key yields a client
// that always reports ErrUpstreamUnavailable.
func NewGeminiClient(cfg GeminiConfig, logger *slog.Logger, m *metrics.Metrics) *GeminiClient {
	c := &GeminiClient{
		logger:     logger.With("component", "nlu_gemini"),
		metrics:    m,
		httpClient: &http.Client{},
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		maxTokens:  cfg.MaxOutputTokens,
	}
	if c.model == "" {
		c.model = defaultGeminiModel
	}
	if c.baseURL == "" {
		c.baseURL = defaultGeminiBase
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxOutputTokens
	}
	return c
}

// Name identifies the provider in intents and metrics.
func (c *GeminiClient) Name() string { return "gemini" }

// Complete issues a single generateContent call bounded by the configured timeout.
// The request is bound to the deadline, so expiry aborts the network call.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrUpstreamUnavailable
	}

	payload := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
		GenerationConfig: generationConfig{
			Temperature:     0,
			MaxOutputTokens: int32(c.maxTokens),
		},
	}
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe("error", start)
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", ErrUpstreamTimeout
		}
		return "", &UpstreamError{Provider: c.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(strconv.Itoa(resp.StatusCode), start)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", ErrUpstreamTimeout
		}
		return "", &UpstreamError{Provider: c.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", &UpstreamError{Provider: c.Name(), StatusCode: resp.StatusCode, Body: snippet}
	}

	text, finish, err := extractCandidateText(body)
	if err != nil {
		return "", err
	}
	if finish == "MAX_TOKENS" {
		c.logger.Debug("gemini output truncated by token cap", "max_output_tokens", c.maxTokens)
	}
	return text, nil
}

func (c *GeminiClient) observe(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.NLULatency.WithLabelValues(c.Name(), status).Observe(time.Since(start).Seconds())
}

func extractCandidateText(body []byte) (string, string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", &MalformedResponseError{Reason: "undecodable envelope"}
	}
	for _, cand := range resp.Candidates {
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				return part.Text, cand.FinishReason, nil
			}
		}
	}
	return "", "", &MalformedResponseError{Reason: "no candidate text found"}
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int32   `json:"maxOutputTokens,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Role  string       `json:"role"`
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}
