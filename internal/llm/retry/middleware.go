// Package retry retries transient provider failures with exponential backoff
// and full jitter, honoring Retry-After guidance from rate limited providers.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

var (
	// Configuration validation errors.
	errMaxAttemptsInvalid     = errors.New("maxAttempts must be greater than 0")
	errInitialIntervalInvalid = errors.New("initialInterval must be greater than 0")
	errMaxIntervalInvalid     = errors.New("maxInterval must be >= initialInterval")
	errMultiplierInvalid      = errors.New("multiplier must be >= 1.0")
	errMaxElapsedTimeInvalid  = errors.New("maxElapsedTime must be >= 0")

	// ErrCancelledDuringRetry is returned when ctx ends while waiting to retry.
	ErrCancelledDuringRetry = errors.New("context cancelled during retry")
)

// AfterProvider is implemented by errors that carry a server-specified delay
// before the next attempt. Zero means no guidance.
type AfterProvider interface {
	GetRetryAfter() time.Duration
}

// Retrier wraps handlers with retry behavior and keeps counters across calls.
type Retrier struct {
	config configuration.RetryConfig
	logger *slog.Logger
	stats  *retryStats
}

// NewRetrier validates cfg and returns a Retrier.
func NewRetrier(cfg configuration.RetryConfig) (*Retrier, error) {
	if cfg.MaxAttempts <= 0 {
		return nil, fmt.Errorf("%w, got %d", errMaxAttemptsInvalid, cfg.MaxAttempts)
	}
	if cfg.InitialInterval <= 0 {
		return nil, fmt.Errorf("%w, got %v", errInitialIntervalInvalid, cfg.InitialInterval)
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		return nil, fmt.Errorf("%w, MaxInterval: %v, InitialInterval: %v", errMaxIntervalInvalid, cfg.MaxInterval, cfg.InitialInterval)
	}
	if cfg.Multiplier < 1.0 {
		return nil, fmt.Errorf("%w, got %f", errMultiplierInvalid, cfg.Multiplier)
	}
	if cfg.MaxElapsedTime < 0 {
		return nil, fmt.Errorf("%w, got %v", errMaxElapsedTimeInvalid, cfg.MaxElapsedTime)
	}
	return &Retrier{
		config: cfg,
		logger: slog.Default().With("component", "retry"),
		stats:  &retryStats{},
	}, nil
}

// NewRetryMiddlewareWithConfig is shorthand for NewRetrier(cfg).Middleware().
func NewRetryMiddlewareWithConfig(cfg configuration.RetryConfig) (transport.Middleware, error) {
	r, err := NewRetrier(cfg)
	if err != nil {
		return nil, err
	}
	return r.Middleware(), nil
}

// Middleware returns the retry middleware.
func (r *Retrier) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			return r.do(ctx, next, req)
		})
	}
}

func (r *Retrier) do(ctx context.Context, next transport.Handler, req *transport.Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		attempts = attempt
		resp, err := next.Handle(ctx, req)
		r.stats.totalAttempts.Add(1)
		if err == nil {
			if attempt > 1 {
				r.stats.successfulRetries.Add(1)
				r.logger.Info("request succeeded after retry",
					"attempt", attempt,
					"provider", req.Provider,
					"model", req.Model)
			} else {
				r.stats.successfulFirstAttempts.Add(1)
			}
			return resp, nil
		}

		if !isRetryable(err) {
			r.logger.Debug("non-retryable error", "error", err, "attempt", attempt, "provider", req.Provider)
			return nil, err
		}
		lastErr = err
		if attempt == r.config.MaxAttempts {
			break
		}

		backoff := r.calculateBackoff(attempt, err)
		if r.config.MaxElapsedTime > 0 && time.Since(start)+backoff > r.config.MaxElapsedTime {
			r.logger.Warn("max elapsed time exceeded", "elapsed", time.Since(start), "attempts", attempt, "last_error", err)
			break
		}
		r.stats.recordBackoff(backoff)

		r.logger.Debug("retrying after backoff",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
			"provider", req.Provider)

		timer := time.NewTimer(backoff)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", ErrCancelledDuringRetry, ctx.Err())
		}
	}

	r.stats.failedRetries.Add(1)
	return nil, fmt.Errorf("%w after %d attempts: %w", llmerrors.ErrMaxRetriesExceeded, attempts, lastErr)
}

// isRetryable reports whether err is worth another attempt. Typed errors are
// checked before the AfterProvider interface so classification wins.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var cbErr *llmerrors.CircuitBreakerError
	if errors.As(err, &cbErr) {
		return false
	}
	var rateLimitErr *llmerrors.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var providerErr *llmerrors.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.IsRetryable()
	}
	var workflowErr *llmerrors.WorkflowError
	if errors.As(err, &workflowErr) {
		return workflowErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if isNetworkError(err) {
		return true
	}
	var provider AfterProvider
	return errors.As(err, &provider)
}

// isNetworkError detects transport failures by type, then by message.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		var netErr net.Error
		if errors.As(urlErr.Err, &netErr) {
			return netErr.Timeout()
		}
		return hasNetworkIndicator(urlErr.Err.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return hasNetworkIndicator(err.Error())
}

var networkIndicators = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"i/o timeout",
	"eof",
}

func hasNetworkIndicator(msg string) bool {
	lowered := strings.ToLower(msg)
	for _, indicator := range networkIndicators {
		if strings.Contains(lowered, indicator) {
			return true
		}
	}
	return false
}
