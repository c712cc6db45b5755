package errors

import (
	"context"
	"errors"
	"strings"
)

// ClassifyLLMError converts err into a WorkflowError carrying retry guidance.
// Typed errors are inspected first, then sentinels, then message patterns.
func ClassifyLLMError(err error) *WorkflowError {
	if err == nil {
		return nil
	}
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr
	}
	if c := classifyTyped(err); c != nil {
		return c
	}
	if c := classifySentinel(err); c != nil {
		return c
	}
	return classifyMessage(err)
}

func classifyTyped(err error) *WorkflowError {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return &WorkflowError{
			Type:      providerErr.Type,
			Message:   providerErr.Message,
			Code:      providerErr.Code,
			Retryable: providerErr.IsRetryable(),
			Details: map[string]any{
				"provider":    providerErr.Provider,
				"status_code": providerErr.StatusCode,
			},
			Cause: err,
		}
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return &WorkflowError{
			Type:      ErrorTypeRateLimit,
			Message:   rateLimitErr.Error(),
			Code:      "RATE_LIMIT",
			Retryable: true,
			Details: map[string]any{
				"provider":    rateLimitErr.Provider,
				"retry_after": rateLimitErr.RetryAfter,
				"local":       rateLimitErr.LocalLimit,
			},
			Cause: err,
		}
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return &WorkflowError{
			Type:      ErrorTypeCircuitBreaker,
			Message:   cbErr.Error(),
			Code:      "CIRCUIT_BREAKER",
			Retryable: true,
			Details: map[string]any{
				"provider": cbErr.Provider,
				"model":    cbErr.Model,
				"state":    cbErr.State,
			},
			Cause: err,
		}
	}

	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return &WorkflowError{
			Type:      ErrorTypeValidation,
			Message:   valErr.Error(),
			Code:      "VALIDATION",
			Retryable: false,
			Details:   map[string]any{"field": valErr.Field},
			Cause:     err,
		}
	}

	return nil
}

// sentinelClasses lists sentinel errors in match order.
var sentinelClasses = []struct {
	target    error
	typ       ErrorType
	code      string
	retryable bool
}{
	{ErrRateLimitExceeded, ErrorTypeRateLimit, "RATE_LIMIT", true},
	{ErrCircuitBreakerOpen, ErrorTypeCircuitBreaker, "CIRCUIT_BREAKER", true},
	{ErrProviderUnavailable, ErrorTypeProvider, "PROVIDER_UNAVAILABLE", true},
	{context.DeadlineExceeded, ErrorTypeTimeout, "TIMEOUT", true},
	{ErrEmptyResponse, ErrorTypeValidation, "EMPTY_RESPONSE", false},
	{ErrInvalidResponse, ErrorTypeValidation, "INVALID_RESPONSE", false},
	{ErrUnknownProvider, ErrorTypeValidation, "UNKNOWN_PROVIDER", false},
	{ErrMaxRetriesExceeded, ErrorTypeProvider, "MAX_RETRIES", false},
}

func classifySentinel(err error) *WorkflowError {
	for _, c := range sentinelClasses {
		if errors.Is(err, c.target) {
			return &WorkflowError{
				Type:      c.typ,
				Message:   err.Error(),
				Code:      c.code,
				Retryable: c.retryable,
				Cause:     err,
			}
		}
	}
	return nil
}

// messageClasses classifies untyped errors by lowercase substrings.
var messageClasses = []struct {
	needles   []string
	typ       ErrorType
	message   string
	code      string
	retryable bool
}{
	{[]string{"rate limit", "too many requests"}, ErrorTypeRateLimit, "Rate limit exceeded", "RATE_LIMIT", true},
	{[]string{"timeout", "deadline"}, ErrorTypeTimeout, "Request timeout", "TIMEOUT", true},
	{[]string{"unauthorized", "authentication", "api key"}, ErrorTypeAuth, "Authentication failed", "AUTH_FAILED", false},
	{[]string{"forbidden", "permission"}, ErrorTypePermission, "Permission denied", "PERMISSION_DENIED", false},
	{[]string{"quota"}, ErrorTypeQuota, "Quota exceeded", "QUOTA_EXCEEDED", false},
	{[]string{"safety", "content filter", "blocked"}, ErrorTypeContent, "Content filtered", "CONTENT_FILTERED", false},
	{[]string{"network", "connection", "eof"}, ErrorTypeNetwork, "Network error", "NETWORK_ERROR", true},
}

func classifyMessage(err error) *WorkflowError {
	msg := strings.ToLower(err.Error())
	for _, c := range messageClasses {
		for _, needle := range c.needles {
			if strings.Contains(msg, needle) {
				return &WorkflowError{
					Type:      c.typ,
					Message:   c.message,
					Code:      c.code,
					Retryable: c.retryable,
					Details:   map[string]any{"original_error": err.Error()},
					Cause:     err,
				}
			}
		}
	}
	return &WorkflowError{
		Type:      ErrorTypeUnknown,
		Message:   "Unknown error",
		Code:      "UNKNOWN",
		Retryable: false,
		Details:   map[string]any{"original_error": err.Error()},
		Cause:     err,
	}
}
