package llm

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

const okBody = `{"id":"c1","choices":[{"message":{"role":"assistant","content":"Paris is the capital."},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":5,"total_tokens":10}}`

// fakeOpenAI fails the first failFirst calls with 502 and then succeeds.
func fakeOpenAI(t *testing.T, failFirst int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		if calls.Add(1) <= failFirst {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = io.WriteString(w, `{"error":{"message":"upstream","type":"server_error"}}`)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testConfig(endpoint string) *configuration.Config {
	cfg := configuration.DefaultConfig()
	cfg.Providers = map[string]configuration.ProviderConfig{
		"openai": {Endpoint: endpoint, APIKey: "sk-test"},
	}
	cfg.Retry.InitialInterval = time.Millisecond
	cfg.Retry.MaxInterval = 5 * time.Millisecond
	cfg.RateLimit.Local.TokensPerSecond = 1000
	cfg.RateLimit.Local.BurstSize = 1000
	return cfg
}

func question(q string) *transport.Request {
	return &transport.Request{
		Operation: transport.OpAnswer,
		Provider:  "openai",
		Model:     "gpt-4o",
		Messages:  []transport.Message{{Role: transport.RoleUser, Content: q}},
		MaxTokens: 128,
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*configuration.Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*configuration.Config) {}},
		{
			name:    "unknown provider",
			mutate:  func(c *configuration.Config) { c.Providers["mistral"] = configuration.ProviderConfig{} },
			wantErr: llmerrors.ErrUnknownProvider,
		},
		{
			name:    "invalid retry",
			mutate:  func(c *configuration.Config) { c.Retry.MaxAttempts = 0 },
			wantErr: configuration.ErrInvalidConfig,
		},
		{
			name: "redis cache without address",
			mutate: func(c *configuration.Config) {
				c.Cache.Enabled = true
				c.Cache.Backend = "redis"
			},
			wantErr: configuration.ErrInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig("http://127.0.0.1:1")
			tt.mutate(cfg)
			c, err := NewClient(cfg)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, c.Close())
		})
	}
}

func TestClient_NilConfigUsesDefaults(t *testing.T) {
	c, err := NewClient(nil)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, configuration.DefaultMaxAttempts, c.config.Retry.MaxAttempts)
}

func TestClient_Do(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0)
	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer c.Close()

	req := question("Capital of France?")
	resp, err := c.Do(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", resp.Content)
	assert.NotEmpty(t, req.IdempotencyKey)
	assert.NotEmpty(t, req.TraceID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesTransientFailures(t *testing.T) {
	srv, calls := fakeOpenAI(t, 2)
	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Do(context.Background(), question("Capital of France?"))
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital.", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(1), c.Stats().Retry.SuccessfulRetries)
}

func TestClient_ExhaustedRetriesSurfaceError(t *testing.T) {
	srv, calls := fakeOpenAI(t, 100)
	cfg := testConfig(srv.URL)
	cfg.CircuitBreaker.Enabled = false
	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Do(context.Background(), question("Capital of France?"))
	require.ErrorIs(t, err, llmerrors.ErrMaxRetriesExceeded)
	var pErr *llmerrors.ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, http.StatusBadGateway, pErr.StatusCode)
	assert.Equal(t, int32(cfg.Retry.MaxAttempts), calls.Load())
}

func TestClient_CacheServesIdenticalRequests(t *testing.T) {
	srv, calls := fakeOpenAI(t, 0)
	cfg := testConfig(srv.URL)
	cfg.Cache.Enabled = true
	c, err := NewClient(cfg)
	require.NoError(t, err)
	defer c.Close()

	first, err := c.Do(context.Background(), question("Capital of France?"))
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := c.Do(context.Background(), question("Capital of France?"))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, int32(1), calls.Load())

	// A follow-up turn changes the canonical request and bypasses the entry.
	followUp := question("Capital of France?")
	followUp.Messages = append(followUp.Messages,
		transport.Message{Role: transport.RoleAssistant, Content: "too long"},
		transport.Message{Role: transport.RoleUser, Content: "Shorter please."})
	_, err = c.Do(context.Background(), followUp)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(1), c.Stats().Cache.Hits)
}

func TestLoggingMiddleware_Redaction(t *testing.T) {
	tests := []struct {
		name      string
		redact    bool
		present   []string
		forbidden []string
	}{
		{
			name:      "redacted",
			redact:    true,
			present:   []string{"question_length", "response_length"},
			forbidden: []string{"secret question", "secret answer"},
		},
		{
			name:    "plain",
			redact:  false,
			present: []string{"secret question", "secret answer"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			mw := NewLoggingMiddleware(configuration.ObservabilityConfig{LogRequests: true, RedactPrompts: tt.redact}, logger)
			h := mw(transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
				return &transport.Response{Content: "secret answer", FinishReason: transport.FinishStop}, nil
			}))

			_, err := h.Handle(context.Background(), question("secret question"))
			require.NoError(t, err)

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.forbidden {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestLoggingMiddleware_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	mw := NewLoggingMiddleware(configuration.ObservabilityConfig{}, logger)
	h := mw(transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		return nil, &llmerrors.ProviderError{Provider: "openai", StatusCode: 429, Type: llmerrors.ErrorTypeRateLimit}
	}))

	_, err := h.Handle(context.Background(), question("q"))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "LLM request failed")
	assert.Contains(t, buf.String(), "error_type=rate_limit")
	assert.NotContains(t, buf.String(), "LLM request started")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	long := strings.Repeat("é", previewLen)
	p := preview(long)
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.LessOrEqual(t, len(p), previewLen+3)
	assert.True(t, strings.HasPrefix(long, strings.TrimSuffix(p, "...")))
}
