// Package orchestrator drives the bounded retry loop that turns a question
// into an accepted, sanitized answer.
//
// Each attempt calls the backend with the attempt history so far, cleans the
// raw output, and checks it against the acceptance criteria: non-empty, within
// the character limit, free of citation residue, and approved by any
// configured checkers. The first accepted answer ends the run. Backend errors
// and rejections are recorded and the next attempt proceeds; there is no delay
// between attempts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahrav/go-questionnaire/internal/backend"
	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/sanitize"
)

// Orchestrator runs ask requests against a backend.
// It holds no per-run state, so concurrent Run calls are safe as long as the
// backend, recorder and checkers are.
type Orchestrator struct {
	backend  backend.Backend
	recorder Recorder
	checkers []Checker
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the reasoning trace recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithCheckers appends acceptance checkers evaluated in order.
func WithCheckers(cs ...Checker) Option {
	return func(o *Orchestrator) { o.checkers = append(o.checkers, cs...) }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l.With("component", "orchestrator")
		}
	}
}

// New creates an Orchestrator over b.
func New(b backend.Backend, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend:  b,
		recorder: NopRecorder{},
		logger:   slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run answers in.Question within in.Attempts() backend calls.
//
// Exhausting every attempt is not an error: the result has Success false, an
// empty answer and no links. Run returns an error only for invalid input
// (wrapping domain.ErrInvalidInput) or when ctx ends between attempts.
func (o *Orchestrator) Run(ctx context.Context, in domain.AskInput) (domain.Result, error) {
	return o.RunWithRecorder(ctx, in, nil)
}

// RunWithRecorder is Run with an additional per-call recorder that receives
// the trace alongside the orchestrator's own recorder.
func (o *Orchestrator) RunWithRecorder(ctx context.Context, in domain.AskInput, extra Recorder) (domain.Result, error) {
	if err := in.Validate(); err != nil {
		return domain.Result{}, err
	}

	rec := o.recorder
	if extra != nil {
		rec = MultiRecorder{o.recorder, extra}
	}

	maxAttempts := in.Attempts()
	history := make(domain.AttemptHistory, 0, maxAttempts)
	start := time.Now()

	rec.Record(fmt.Sprintf("Question: %s", in.Question))
	if in.Context != "" {
		rec.Record(fmt.Sprintf("Context: %s", in.Context))
	}
	rec.Record(fmt.Sprintf("Character limit: %d, max attempts: %d", in.CharLimit, maxAttempts))

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			rec.Record(fmt.Sprintf("Stopped before attempt %d: %v", attempt, err))
			return domain.Failed(len(history), lastSummary(history)), fmt.Errorf("ask cancelled before attempt %d: %w", attempt, err)
		}

		rec.Record(fmt.Sprintf("Attempt %d/%d", attempt, maxAttempts))
		record, links := o.attempt(ctx, in, attempt, history.Clone(), rec)
		history = append(history, record)

		if record.Verdict == domain.VerdictAccepted {
			rec.Record(fmt.Sprintf("Answer accepted on attempt %d (%d characters, %d links)",
				attempt, len([]rune(record.CleanAnswer)), len(links)))
			o.logger.Info("question answered",
				"attempts", attempt,
				"links", len(links),
				"duration", time.Since(start))
			return domain.Result{
				Success:  true,
				Answer:   record.CleanAnswer,
				Links:    links,
				Attempts: attempt,
			}, nil
		}

		rec.Record(record.Summary())
	}

	last := lastSummary(history)
	rec.Record(fmt.Sprintf("All %d attempts failed", maxAttempts))
	o.logger.Warn("question not answered",
		"attempts", maxAttempts,
		"last_failure", last,
		"duration", time.Since(start))
	return domain.Failed(maxAttempts, last), nil
}

// attempt performs one backend call and evaluates its output.
func (o *Orchestrator) attempt(
	ctx context.Context,
	in domain.AskInput,
	index int,
	history domain.AttemptHistory,
	rec Recorder,
) (domain.AttemptRecord, []domain.Link) {
	record := domain.AttemptRecord{
		Index:     index,
		Question:  in.Question,
		Context:   in.Context,
		CharLimit: in.CharLimit,
	}

	raw, err := o.backend.Answer(ctx, domain.Query{
		Question:  in.Question,
		Context:   in.Context,
		CharLimit: in.CharLimit,
		Attempt:   index,
		History:   history,
	})
	if err != nil {
		record.Verdict = domain.VerdictBackendFailed
		record.Detail = err.Error()
		record.Err = fmt.Errorf("%w: %w", domain.ErrBackendFailure, err)
		o.logger.Debug("backend failed", "attempt", index, "error", err)
		return record, nil
	}

	clean, links := sanitize.Clean(raw.Text)
	if len(raw.Sources) > 0 {
		extra := make([]domain.Link, 0, len(raw.Sources))
		for _, src := range raw.Sources {
			extra = append(extra, domain.SourceLink(src))
		}
		links = domain.MergeLinks(links, extra...)
	}
	record.RawAnswer = raw.Text
	record.CleanAnswer = clean

	if in.Verbose {
		rec.Record(fmt.Sprintf("Raw answer:\n%s", raw.Text))
		rec.Record(fmt.Sprintf("Cleaned answer:\n%s", clean))
		rec.Record(formatLinks(links))
	}

	reason, detail := accept(clean, in.CharLimit)
	if reason == domain.ReasonNone {
		reason, detail = o.runCheckers(ctx, in.Question, clean, links, rec)
	}
	if reason != domain.ReasonNone {
		record.Verdict = domain.VerdictRejected
		record.Reason = reason
		record.Detail = detail
		record.Err = fmt.Errorf("%w: %s: %s", domain.ErrValidationRejection, reason, detail)
		return record, nil
	}

	record.Verdict = domain.VerdictAccepted
	return record, links
}

func (o *Orchestrator) runCheckers(
	ctx context.Context,
	question, answer string,
	links []domain.Link,
	rec Recorder,
) (domain.RejectionReason, string) {
	for _, c := range o.checkers {
		err := c.Check(ctx, question, answer, links)
		if err == nil {
			rec.Record(fmt.Sprintf("%s: passed", c.Name()))
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			o.logger.Debug("checker interrupted", "checker", c.Name(), "error", err)
		}
		return domain.ReasonChecker, fmt.Sprintf("%s: %v", c.Name(), err)
	}
	return domain.ReasonNone, ""
}

func lastSummary(h domain.AttemptHistory) string {
	last, ok := h.Last()
	if !ok {
		return ""
	}
	return last.Summary()
}

func formatLinks(links []domain.Link) string {
	if len(links) == 0 {
		return "Links: none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Links (%d):", len(links))
	for _, l := range links {
		fmt.Fprintf(&b, "\n  - %s", l.URL)
	}
	return b.String()
}
