package checker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ahrav/go-questionnaire/internal/backend"
	"github.com/ahrav/go-questionnaire/internal/domain"
)

// ErrUnparseableVerdict is returned when the model answers neither VALID
// nor INVALID.
var ErrUnparseableVerdict = errors.New("unparseable checker verdict")

// AnswerConfig enables the model-graded answer check.
type AnswerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// AnswerChecker asks a model to grade the answer.
type AnswerChecker struct {
	model backend.Completer
}

// NewAnswerChecker returns an AnswerChecker backed by model.
func NewAnswerChecker(model backend.Completer) *AnswerChecker {
	return &AnswerChecker{model: model}
}

// Name implements orchestrator.Checker.
func (c *AnswerChecker) Name() string { return "answer checker" }

// Check implements orchestrator.Checker.
func (c *AnswerChecker) Check(ctx context.Context, question, answer string, _ []domain.Link) error {
	out, err := c.model.Complete(ctx, backend.CheckPrompt(question, answer))
	if err != nil {
		return fmt.Errorf("answer check: %w", err)
	}
	return ParseVerdict(out)
}

// ParseVerdict interprets "VALID" or "INVALID: reason". A rejection wraps
// ErrRejected with the model's reason.
func ParseVerdict(out string) error {
	s := strings.TrimSpace(out)
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "INVALID"):
		reason := strings.TrimSpace(strings.TrimLeft(s[len("INVALID"):], ": -"))
		if reason == "" {
			reason = "no reason given"
		}
		return fmt.Errorf("%w: %s", ErrRejected, reason)
	case strings.HasPrefix(upper, "VALID"):
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnparseableVerdict, truncate(s, 80))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
