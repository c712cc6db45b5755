package activity

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-questionnaire/internal/domain"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
)

// Application error types set on errors returned by AnswerQuestion.
const (
	// ErrorValidation marks input the activity can never accept.
	ErrorValidation = "Validation"

	// ErrorExhausted marks a question whose every attempt was rejected. The
	// error carries the failed AnswerOutput as details.
	ErrorExhausted = "ExhaustedRetries"

	// ErrorBackend marks a backend failure that escaped the orchestrator.
	ErrorBackend = "Backend"
)

func nonRetryable(tag string, cause error, msg string, details ...any) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause, details...)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}

// classify maps an orchestrator error onto a Temporal application error.
// Context errors pass through so Temporal reports cancellation and timeouts
// as such.
func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, domain.ErrInvalidInput):
		return nonRetryable(ErrorValidation, err, "invalid ask input")
	}
	if wfErr := llmerrors.ClassifyLLMError(err); wfErr != nil && wfErr.ShouldRetry() {
		return retryable(ErrorBackend, err, wfErr.Message)
	}
	return nonRetryable(ErrorBackend, err, "answering failed")
}
