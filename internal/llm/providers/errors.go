package providers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
)

// ErrUnsupportedOperation is returned for operations an adapter cannot build.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// classifyErrorType prefers the provider's error code over the HTTP status.
func classifyErrorType(statusCode int, errorCode string) llmerrors.ErrorType {
	code := strings.ToLower(errorCode)
	switch {
	case strings.Contains(code, "rate") || strings.Contains(code, "limit"):
		return llmerrors.ErrorTypeRateLimit
	case strings.Contains(code, "timeout"):
		return llmerrors.ErrorTypeTimeout
	case strings.Contains(code, "auth") || strings.Contains(code, "api_key"):
		return llmerrors.ErrorTypeAuth
	case strings.Contains(code, "permission") || strings.Contains(code, "forbidden"):
		return llmerrors.ErrorTypePermission
	case strings.Contains(code, "quota") || strings.Contains(code, "billing"):
		return llmerrors.ErrorTypeQuota
	case strings.Contains(code, "overloaded"):
		return llmerrors.ErrorTypeProvider
	}
	return llmerrors.TypeForStatus(statusCode)
}

// retryAfterSeconds reads Retry-After as seconds or an HTTP date.
func retryAfterSeconds(h http.Header) int {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return int(d.Seconds() + 0.5)
		}
	}
	return 0
}

// providerError builds a ProviderError from a non-2xx response. decode pulls
// the provider's message and code out of the body; when it finds nothing the
// raw body becomes the message.
func providerError(provider string, resp *http.Response, body []byte, decode func([]byte) (msg, code string)) error {
	msg, code := "", ""
	if decode != nil {
		msg, code = decode(body)
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	return &llmerrors.ProviderError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       code,
		Type:       classifyErrorType(resp.StatusCode, code),
		RetryAfter: retryAfterSeconds(resp.Header),
	}
}

// decodeJSONError extracts {"error":{"message","type","code"}} bodies.
func decodeJSONError(body []byte) (string, string) {
	var e struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    any    `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return "", ""
	}
	code := e.Error.Type
	if s, ok := e.Error.Code.(string); ok && s != "" {
		code = s
	}
	return e.Error.Message, code
}
