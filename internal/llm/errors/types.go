// Package errors defines the typed failures of the hosted-model pipeline and
// classifies them into retry guidance.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType categorizes a pipeline failure for retry decisions.
type ErrorType string

const (
	// ErrorTypeTimeout indicates a request deadline was exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates a local or remote rate limit (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates a connectivity failure (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates the provider answered with a 5xx (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeCircuitBreaker indicates the breaker rejected the call (retryable).
	ErrorTypeCircuitBreaker ErrorType = "circuit_breaker"

	// ErrorTypeValidation indicates a malformed request or response.
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeContent indicates the provider refused to answer on safety grounds.
	ErrorTypeContent ErrorType = "content_filtered"

	// ErrorTypeAuth indicates missing or rejected credentials.
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypePermission indicates the credentials lack access to the model.
	ErrorTypePermission ErrorType = "permission_denied"

	// ErrorTypeQuota indicates the account quota is spent.
	ErrorTypeQuota ErrorType = "quota_exceeded"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Sentinel errors shared across the pipeline.
var (
	ErrProviderUnavailable = errors.New("provider service unavailable")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
	ErrCircuitBreakerOpen  = errors.New("circuit breaker open")
	ErrCacheMiss           = errors.New("cache miss")
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrInvalidResponse     = errors.New("invalid provider response")
	ErrEmptyResponse       = errors.New("provider returned no content")
	ErrMaxRetriesExceeded  = errors.New("maximum retries exceeded")
)

// ProviderError is a structured non-2xx response from a provider.
type ProviderError struct {
	Provider   string    `json:"provider"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code"`
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after"` // seconds, from the Retry-After header
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure is transient.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns the provider's requested delay, or zero.
func (e *ProviderError) GetRetryAfter() time.Duration {
	return seconds(e.RetryAfter)
}

// RateLimitError reports a rate limit hit, local or remote.
type RateLimitError struct {
	Provider   string `json:"provider"`
	RetryAfter int    `json:"retry_after"`
	Limit      int    `json:"limit"`
	LocalLimit bool   `json:"local_limit"`
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// GetRetryAfter returns the suggested delay, or zero.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	return seconds(e.RetryAfter)
}

// Unwrap lets errors.Is match ErrRateLimitExceeded.
func (e *RateLimitError) Unwrap() error { return ErrRateLimitExceeded }

// CircuitBreakerError reports a call rejected by an open breaker.
type CircuitBreakerError struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	State    string `json:"state"`
	ResetAt  int64  `json:"reset_at"`
}

func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker %s for %s/%s", e.State, e.Provider, e.Model)
}

// Unwrap lets errors.Is match ErrCircuitBreakerOpen.
func (e *CircuitBreakerError) Unwrap() error { return ErrCircuitBreakerOpen }

// ValidationError reports a malformed request or provider response field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// IsRetryableError reports whether err is worth another attempt at the
// transport level.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.ShouldRetry()
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}

	if errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrCircuitBreakerOpen) ||
		errors.Is(err, ErrProviderUnavailable) {
		return true
	}

	return false
}

// IsRateLimitError reports whether err is a rate limit of any origin.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) && wfErr.Type == ErrorTypeRateLimit {
		return true
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Type == ErrorTypeRateLimit {
		return true
	}
	return errors.Is(err, ErrRateLimitExceeded)
}

// TypeForStatus maps an HTTP status code to an ErrorType.
func TypeForStatus(status int) ErrorType {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case status == http.StatusUnauthorized:
		return ErrorTypeAuth
	case status == http.StatusForbidden:
		return ErrorTypePermission
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case status == http.StatusPaymentRequired:
		return ErrorTypeQuota
	case status >= http.StatusInternalServerError:
		return ErrorTypeProvider
	case status >= http.StatusBadRequest:
		return ErrorTypeValidation
	default:
		return ErrorTypeUnknown
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
