// Package backend provides the answering collaborators driven by the
// orchestrator. A Backend receives one query per attempt, including the
// history of earlier attempts, and returns the raw model output. Backends are
// selected by configuration through New; the orchestrator never branches on
// which implementation it holds.
package backend

import (
	"context"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// Backend answers a single attempt of a question.
// Implementations must be safe for concurrent use and honor ctx cancellation.
type Backend interface {
	Answer(ctx context.Context, q domain.Query) (domain.RawAnswer, error)
}

// Func adapts a function to the Backend interface.
type Func func(ctx context.Context, q domain.Query) (domain.RawAnswer, error)

// Answer implements Backend.
func (f Func) Answer(ctx context.Context, q domain.Query) (domain.RawAnswer, error) {
	return f(ctx, q)
}

// Text returns a Backend that always answers with text.
func Text(text string) Backend {
	return Func(func(context.Context, domain.Query) (domain.RawAnswer, error) {
		return domain.RawAnswer{Text: text}, nil
	})
}
