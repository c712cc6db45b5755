package retry

import (
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
)

// maxRetryAfter caps provider guidance so a bad header cannot stall a run.
const maxRetryAfter = time.Minute

// calculateBackoff prefers provider Retry-After guidance and otherwise uses
// exponential backoff.
func (r *Retrier) calculateBackoff(attempt int, err error) time.Duration {
	if after := extractRetryAfter(err); after > 0 {
		return min(after, maxRetryAfter)
	}
	return ExponentialBackoff(attempt, r.config)
}

// extractRetryAfter reads retry guidance from typed errors.
func extractRetryAfter(err error) time.Duration {
	var provider AfterProvider
	if errors.As(err, &provider) {
		return provider.GetRetryAfter()
	}
	var workflowErr *llmerrors.WorkflowError
	if errors.As(err, &workflowErr) && workflowErr.Details != nil {
		if raw, ok := workflowErr.Details["retry_after"]; ok {
			return parseRetryAfterValue(raw)
		}
	}
	return 0
}

// parseRetryAfterValue accepts seconds as a number or string, an HTTP date,
// or a duration.
func parseRetryAfterValue(value any) time.Duration {
	switch v := value.(type) {
	case int:
		return time.Duration(v) * time.Second
	case int64:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case time.Duration:
		return v
	case string:
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			return max(time.Until(t), 0)
		}
	}
	return 0
}

// ExponentialBackoff returns the delay before retry number attempt+1:
// InitialInterval * Multiplier^(attempt-1), capped at MaxInterval, then
// drawn uniformly from [0, delay] when jitter is on.
func ExponentialBackoff(attempt int, config configuration.RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := config.InitialInterval
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * config.Multiplier)
		if backoff > config.MaxInterval {
			backoff = config.MaxInterval
			break
		}
	}

	if config.UseJitter {
		return time.Duration(rand.Int64N(int64(backoff) + 1)) // #nosec G404 -- jitter does not need crypto randomness
	}
	return backoff
}
