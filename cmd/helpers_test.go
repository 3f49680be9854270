package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/header-mapper/internal/config"
)

const contactMapping = `{"mapping":{"First":{"mappedTo":"firstName","confidence":0.95},"Last":{"mappedTo":"lastName","confidence":0.95},"E-mail":{"mappedTo":"email","confidence":0.98}},"unmappedHeaders":[],"notes":""}`

// fakeAnthropic serves the Messages API. fail returns the HTTP status to
// fail call n (1-based) with, or 0 to answer with text.
func fakeAnthropic(t *testing.T, text string, fail func(n int32) int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if fail != nil {
			if status := fail(n); status != 0 {
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"type":  "error",
					"error": map[string]any{"type": "api_error", "message": http.StatusText(status)},
				})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"model":       "claude-sonnet-4-5-20250929",
			"content":     []map[string]any{{"type": "text", "text": text}},
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 900, "output_tokens": 120},
		})
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

// useTestConfig installs a config pointing the mapper at baseURL.
func useTestConfig(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("MAPPER_ANTHROPIC_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	prev := cfg
	cfg = &config.Config{
		Anthropic: config.AnthropicConfig{
			Key:         "sk-test",
			BaseURL:     baseURL,
			TimeoutSecs: 10,
			RateBurst:   1,
		},
		Retry: config.RetryConfig{
			MaxAttempts:      1,
			InitialBackoffMs: 1,
			MaxBackoffMs:     5,
		},
		Server: config.ServerConfig{
			Port:            8080,
			MaxUploadMB:     1,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 5,
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
	t.Cleanup(func() { cfg = prev })
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
