package llm

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

const previewLen = 200

// LoggingMiddleware logs the start and outcome of every logical call. It sits
// outermost in the chain, so one entry covers all transport retries.
type LoggingMiddleware struct {
	logger *slog.Logger
	config configuration.ObservabilityConfig
}

// NewLoggingMiddleware returns request logging middleware. A nil logger uses
// slog.Default.
func NewLoggingMiddleware(cfg configuration.ObservabilityConfig, logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &LoggingMiddleware{logger: logger.With("component", "llm"), config: cfg}
	return m.Middleware
}

// Middleware wraps next with request and response logging.
func (m *LoggingMiddleware) Middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		if req.TraceID == "" {
			req.TraceID = uuid.NewString()
		}
		if m.config.LogRequests {
			m.logRequest(ctx, req)
		}

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		elapsed := time.Since(start)

		switch {
		case err != nil:
			m.logError(ctx, req, err, elapsed)
		case resp != nil && m.config.LogRequests:
			m.logResponse(ctx, req, resp, elapsed)
		}
		return resp, err
	})
}

func (m *LoggingMiddleware) baseFields(req *transport.Request) []any {
	return []any{
		"request_id", req.TraceID,
		"provider", req.Provider,
		"model", req.Model,
		"operation", req.Operation,
		"tenant_id", req.TenantID,
	}
}

func (m *LoggingMiddleware) logRequest(ctx context.Context, req *transport.Request) {
	fields := append(m.baseFields(req),
		"max_tokens", req.MaxTokens,
		"temperature", req.Temperature,
		"web_search", req.WebSearch,
		"turns", len(req.Messages),
	)
	question := req.LastUserMessage()
	if m.config.RedactPrompts {
		fields = append(fields,
			"question_length", len(question),
			"system_prompt_length", len(req.SystemPrompt))
	} else {
		fields = append(fields, "question", question)
	}
	m.logger.InfoContext(ctx, "LLM request started", fields...)
}

func (m *LoggingMiddleware) logError(ctx context.Context, req *transport.Request, err error, elapsed time.Duration) {
	errorType := string(llmerrors.ErrorTypeUnknown)
	if wfErr := llmerrors.ClassifyLLMError(err); wfErr != nil {
		errorType = string(wfErr.Type)
	}
	fields := append(m.baseFields(req),
		"duration_ms", elapsed.Milliseconds(),
		"error_type", errorType,
		"error", err.Error(),
	)
	m.logger.ErrorContext(ctx, "LLM request failed", fields...)
}

func (m *LoggingMiddleware) logResponse(ctx context.Context, req *transport.Request, resp *transport.Response, elapsed time.Duration) {
	fields := append(m.baseFields(req),
		"duration_ms", elapsed.Milliseconds(),
		"finish_reason", resp.FinishReason,
		"cached", resp.Cached,
		"citations", len(resp.Citations),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"provider_request_ids", strings.Join(resp.ProviderRequestIDs, ","),
	)
	if m.config.RedactPrompts {
		fields = append(fields, "response_length", len(resp.Content))
	} else {
		fields = append(fields, "response_preview", preview(resp.Content))
	}
	m.logger.InfoContext(ctx, "LLM request completed", fields...)
}

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	cut := previewLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
