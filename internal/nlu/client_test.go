package nlu

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bot-inventory/internal/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func geminiEnvelope(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": text}},
				},
				"finishReason": "STOP",
			},
		},
	})
	return string(body)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *GeminiClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewGeminiClient(GeminiConfig{
		APIKey:          "test-key",
		Model:           "gemini-test",
		BaseURL:         server.URL,
		Timeout:         timeout,
		MaxOutputTokens: 128,
	}, discardLogger(), metrics.NewNop())
}

func TestGeminiClient_Complete(t *testing.T) {
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gen := req["generationConfig"].(map[string]any)
		assert.Equal(t, 0.0, gen["temperature"])
		assert.Equal(t, 128.0, gen["maxOutputTokens"])

		contents := req["contents"].([]any)
		parts := contents[0].(map[string]any)["parts"].([]any)
		assert.Contains(t, parts[0].(map[string]any)["text"], `User: "add 5 kg rice"`)

		_, _ = io.WriteString(w, geminiEnvelope(`{"action":"add","product":"rice","quantity":5,"price":null}`))
	}, time.Second)

	text, err := client.Complete(context.Background(), buildIntentPrompt("add 5 kg rice"))
	require.NoError(t, err)
	assert.Equal(t, `{"action":"add","product":"rice","quantity":5,"price":null}`, text)
}

func TestGeminiClient_NonSuccessStatus(t *testing.T) {
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"quota"}}`)
	}, time.Second)

	_, err := client.Complete(context.Background(), "prompt")
	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Contains(t, upstream.Body, "quota")
	assert.Equal(t, KindUpstreamError, Kind(err))
}

func TestGeminiClient_TimeoutCancelsRequest(t *testing.T) {
	cancelled := make(chan struct{})
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		// The server only notices a dropped connection once the body is consumed.
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-r.Context().Done():
			close(cancelled)
		case <-time.After(5 * time.Second):
		}
	}, 50*time.Millisecond)

	start := time.Now()
	_, err := client.Complete(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrUpstreamTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the request cancelled")
	}
}

func TestGeminiClient_NoKey(t *testing.T) {
	client := NewGeminiClient(GeminiConfig{}, discardLogger(), nil)
	_, err := client.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGeminiClient_EmptyCandidates(t *testing.T) {
	client := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[]}`)
	}, time.Second)

	_, err := client.Complete(context.Background(), "prompt")
	assert.Equal(t, KindMalformedResponse, Kind(err))
}
