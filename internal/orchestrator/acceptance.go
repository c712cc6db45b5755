package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/sanitize"
)

// Checker is an optional acceptance step evaluated after the built-in
// criteria pass. A non-nil error rejects the answer; its message becomes the
// rejection detail fed back to the backend.
type Checker interface {
	Name() string
	Check(ctx context.Context, question, answer string, links []domain.Link) error
}

// accept applies the built-in acceptance criteria to a cleaned answer.
// It returns ReasonNone when the answer is acceptable.
func accept(clean string, charLimit int) (domain.RejectionReason, string) {
	if strings.TrimSpace(clean) == "" {
		return domain.ReasonEmpty, "answer is empty after sanitization"
	}
	if n := utf8.RuneCountInString(clean); n > charLimit {
		return domain.ReasonTooLong, fmt.Sprintf("%d > %d characters", n, charLimit)
	}
	if sanitize.HasCitationResidue(clean) {
		return domain.ReasonCitationResidue, "citation markers remain after sanitization"
	}
	return domain.ReasonNone, ""
}
