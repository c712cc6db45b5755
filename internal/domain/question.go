// Package domain defines the core types of the questionnaire answering
// pipeline: ask requests, backend queries and raw answers, extracted links,
// per-attempt records and batch questionnaires. Types here carry no behavior
// beyond validation and small derived views so that every other package can
// depend on them without cycles.
package domain

import (
	"fmt"
	"slices"
)

const (
	// DefaultCharLimit is the answer length bound applied when a caller does
	// not supply one.
	DefaultCharLimit = 2000

	// DefaultMaxRetries is the attempt budget applied when a caller does not
	// supply one.
	DefaultMaxRetries = 3
)

// AskInput is a single request to answer one question.
// MaxRetries below 1 is treated as 1; at least one backend call always happens.
type AskInput struct {
	// Question is the natural-language question to answer.
	Question string `json:"question" yaml:"question" validate:"notblank"`

	// Context is optional topic/product context forwarded verbatim to the backend.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`

	// CharLimit bounds the cleaned answer length in Unicode code points.
	CharLimit int `json:"char_limit" yaml:"char_limit" validate:"gt=0"`

	// MaxRetries is the total number of attempts, not additional retries.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Verbose adds raw and cleaned answer dumps to the reasoning trace.
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
}

// Validate reports whether the input can be processed. The returned error
// wraps ErrInvalidInput.
func (in AskInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, describeValidation(err))
	}
	return nil
}

// Attempts returns the effective attempt budget.
func (in AskInput) Attempts() int {
	return max(1, in.MaxRetries)
}

// Query is what an answering backend receives for a single attempt.
type Query struct {
	Question  string
	Context   string
	CharLimit int

	// Attempt is the 1-based attempt index.
	Attempt int

	// History holds every earlier attempt of the same run, oldest first.
	// It is a private copy; backends may retain it.
	History AttemptHistory
}

// RawAnswer is the unmodified backend output for one attempt.
type RawAnswer struct {
	// Text may contain citation markers, formatting artifacts and URLs.
	Text string

	// Sources are grounding URLs the backend reported out-of-band, such as
	// search grounding chunks or url_citation annotations.
	Sources []string
}

// Result is the outcome of a full ask run.
type Result struct {
	// Success is true iff some attempt produced an accepted answer.
	Success bool `json:"success" yaml:"success"`

	// Answer is the cleaned accepted answer, empty on failure.
	Answer string `json:"answer" yaml:"answer"`

	// Links are the references extracted from the accepted answer in order of
	// first appearance. Empty on failure.
	Links []Link `json:"links" yaml:"links"`

	// Attempts is the number of backend calls made.
	Attempts int `json:"attempts" yaml:"attempts"`

	// LastFailure describes why the final attempt failed. Empty on success.
	LastFailure string `json:"last_failure,omitempty" yaml:"last_failure,omitempty"`
}

// URLs returns the href of every link in order.
func (r Result) URLs() []string {
	out := make([]string, len(r.Links))
	for i, l := range r.Links {
		out[i] = l.URL
	}
	return out
}

// Err converts an unsuccessful result into an error wrapping
// ErrExhaustedRetries. It returns nil on success.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.LastFailure == "" {
		return fmt.Errorf("%w after %d attempt(s)", ErrExhaustedRetries, r.Attempts)
	}
	return fmt.Errorf("%w after %d attempt(s): %s", ErrExhaustedRetries, r.Attempts, r.LastFailure)
}

// Failed builds the canonical unsuccessful result.
func Failed(attempts int, lastFailure string) Result {
	return Result{Links: []Link{}, Attempts: attempts, LastFailure: lastFailure}
}

// Clone returns a deep copy of r.
func (r Result) Clone() Result {
	r.Links = slices.Clone(r.Links)
	if r.Links == nil {
		r.Links = []Link{}
	}
	return r
}
