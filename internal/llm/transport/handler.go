package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
)

// Router selects the provider adapter for a request.
type Router interface {
	Pick(provider, model string) (ProviderAdapter, error)
}

// ProviderAdapter translates between the normalized types and one provider's
// HTTP API.
type ProviderAdapter interface {
	Build(ctx context.Context, req *Request) (*http.Request, error)
	Parse(httpResp *http.Response) (*Response, error)
	Name() string
}

// Validator checks a parsed provider response before it leaves the core handler.
type Validator interface {
	ValidateResponse(resp *Response) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(resp *Response) error

// ValidateResponse implements Validator.
func (f ValidatorFunc) ValidateResponse(resp *Response) error { return f(resp) }

// DefaultValidator rejects responses without usable content.
var DefaultValidator Validator = ValidatorFunc(func(resp *Response) error {
	if resp.FinishReason == FinishContentFilter {
		return &llmerrors.ProviderError{
			Message: "response blocked by content filter",
			Code:    "content_filter",
			Type:    llmerrors.ErrorTypeContent,
		}
	}
	if strings.TrimSpace(resp.Content) == "" {
		return llmerrors.ErrEmptyResponse
	}
	return nil
})

// Handler processes a request through the pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware wraps a Handler with additional behavior.
type Middleware func(Handler) Handler

// Chain wraps h so that the first middleware is outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] != nil {
			h = middlewares[i](h)
		}
	}
	return h
}

// NewHTTPHandler creates the core handler that performs the provider call.
// A nil validator uses DefaultValidator.
func NewHTTPHandler(client *http.Client, router Router, validator Validator) Handler {
	if validator == nil {
		validator = DefaultValidator
	}
	return &httpHandler{
		client:    client,
		router:    router,
		validator: validator,
		logger:    slog.Default().With("component", "transport"),
	}
}

type httpHandler struct {
	client    *http.Client
	router    Router
	validator Validator
	logger    *slog.Logger
}

// Handle implements Handler by making the HTTP request to the provider.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	adapter, err := h.router.Pick(req.Provider, req.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to select provider: %w", err)
	}

	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if closeErr := httpResp.Body.Close(); closeErr != nil {
			h.logger.Debug("closing response body", "error", closeErr)
		}
	}()

	resp, err := adapter.Parse(httpResp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	resp.Usage.LatencyMs = latency.Milliseconds()

	if err := h.validator.ValidateResponse(resp); err != nil {
		return nil, fmt.Errorf("invalid provider response: %w", err)
	}
	return resp, nil
}
