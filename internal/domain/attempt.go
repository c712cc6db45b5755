package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Verdict is the outcome of a single attempt.
type Verdict string

const (
	// VerdictAccepted means the cleaned answer met every acceptance criterion.
	VerdictAccepted Verdict = "accepted"

	// VerdictRejected means the backend answered but the cleaned answer failed
	// an acceptance criterion.
	VerdictRejected Verdict = "rejected"

	// VerdictBackendFailed means the backend call itself returned an error.
	VerdictBackendFailed Verdict = "backend_failed"
)

// RejectionReason names the acceptance criterion an answer failed.
type RejectionReason string

const (
	// ReasonNone is used for accepted and backend-failed attempts.
	ReasonNone RejectionReason = ""

	// ReasonEmpty means the cleaned answer was blank.
	ReasonEmpty RejectionReason = "empty"

	// ReasonTooLong means the cleaned answer exceeded the character limit.
	ReasonTooLong RejectionReason = "too_long"

	// ReasonCitationResidue means citation markers survived sanitization.
	ReasonCitationResidue RejectionReason = "citation_residue"

	// ReasonChecker means an optional answer or link checker rejected the answer.
	ReasonChecker RejectionReason = "checker"
)

// AttemptRecord captures one attempt of a run.
type AttemptRecord struct {
	// Index is 1-based.
	Index int

	Question  string
	Context   string
	CharLimit int

	// RawAnswer is empty when the backend failed.
	RawAnswer string

	// CleanAnswer is the sanitized RawAnswer, empty when the backend failed.
	CleanAnswer string

	Verdict Verdict
	Reason  RejectionReason

	// Detail is a human-readable explanation of a rejection or failure.
	Detail string

	// Err is the backend error for VerdictBackendFailed, wrapping
	// ErrBackendFailure, or a rejection wrapping ErrValidationRejection.
	Err error
}

// Failed reports whether the attempt did not produce an accepted answer.
func (r AttemptRecord) Failed() bool {
	return r.Verdict != VerdictAccepted
}

// Summary is a one-line description used in traces and results.
func (r AttemptRecord) Summary() string {
	switch r.Verdict {
	case VerdictAccepted:
		return fmt.Sprintf("attempt %d accepted", r.Index)
	case VerdictBackendFailed:
		return fmt.Sprintf("attempt %d backend failed: %s", r.Index, r.Detail)
	default:
		return fmt.Sprintf("attempt %d rejected (%s): %s", r.Index, r.Reason, r.Detail)
	}
}

// AttemptHistory is the ordered, append-only record of a run's attempts.
type AttemptHistory []AttemptRecord

// Clone returns an independent copy safe to hand to a backend.
func (h AttemptHistory) Clone() AttemptHistory {
	return slices.Clone(h)
}

// Last returns the most recent attempt and whether one exists.
func (h AttemptHistory) Last() (AttemptRecord, bool) {
	if len(h) == 0 {
		return AttemptRecord{}, false
	}
	return h[len(h)-1], true
}

// Rejected reports whether any earlier attempt failed for reason.
func (h AttemptHistory) Rejected(reason RejectionReason) bool {
	return slices.ContainsFunc(h, func(r AttemptRecord) bool {
		return r.Verdict == VerdictRejected && r.Reason == reason
	})
}

// Feedback renders the failures in h as corrective instructions for a model.
// It returns "" when there is nothing to correct.
func (h AttemptHistory) Feedback() string {
	var b strings.Builder
	for _, r := range h {
		if !r.Failed() {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("Previous attempts were not accepted:\n")
		}
		fmt.Fprintf(&b, "- Attempt %d: %s\n", r.Index, feedbackLine(r))
	}
	if b.Len() == 0 {
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
}

func feedbackLine(r AttemptRecord) string {
	switch {
	case r.Verdict == VerdictBackendFailed:
		return "the request failed, please answer again."
	case r.Reason == ReasonTooLong:
		return fmt.Sprintf("the answer was too long (%s). Keep it under %d characters.", r.Detail, r.CharLimit)
	case r.Reason == ReasonEmpty:
		return "the answer was empty. Provide a complete answer."
	case r.Reason == ReasonCitationResidue:
		return "the answer contained citation markers. Do not include bracketed source references."
	default:
		return r.Detail
	}
}
