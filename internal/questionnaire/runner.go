package questionnaire

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// Asker answers a single question. *orchestrator.Orchestrator implements it.
type Asker interface {
	Run(ctx context.Context, in domain.AskInput) (domain.Result, error)
}

// Runner answers every question of a questionnaire with bounded concurrency.
type Runner struct {
	asker       Asker
	concurrency int
	verbose     bool
	now         func() time.Time
	logger      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithConcurrency bounds the number of questions answered at once.
func WithConcurrency(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithVerbose requests verbose traces for every question.
func WithVerbose(v bool) RunnerOption {
	return func(r *Runner) { r.verbose = v }
}

// NewRunner returns a Runner over asker.
func NewRunner(asker Asker, opts ...RunnerOption) *Runner {
	r := &Runner{
		asker:       asker,
		concurrency: 1,
		now:         time.Now,
		logger:      slog.Default().With("component", "batch"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run answers q. Items keep questionnaire order. Per-item failures, including
// invalid items, land in the item's Error field and never abort the batch;
// Run returns an error only when ctx ends, alongside the partial report.
func (r *Runner) Run(ctx context.Context, q *domain.Questionnaire) (*domain.Report, error) {
	report := &domain.Report{
		RunID:     uuid.NewString(),
		Name:      q.Name,
		StartedAt: r.now().UTC(),
		Items:     make([]domain.ItemResult, len(q.Questions)),
	}
	logger := r.logger.With("run_id", report.RunID)
	logger.Info("questionnaire started", "name", q.Name, "questions", len(q.Questions), "concurrency", r.concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, item := range q.Questions {
		report.Items[i] = domain.ItemResult{ID: item.ID, Question: item.Question, Result: domain.Failed(0, "")}
		if gctx.Err() != nil {
			report.Items[i].Error = gctx.Err().Error()
			continue
		}
		g.Go(func() error {
			res, err := r.asker.Run(gctx, q.Input(item, r.verbose))
			if err != nil {
				report.Items[i].Error = err.Error()
				logger.Warn("question errored", "id", item.ID, "error", err)
				return nil
			}
			report.Items[i].Result = res
			logger.Debug("question finished", "id", item.ID, "success", res.Success, "attempts", res.Attempts)
			return nil
		})
	}
	_ = g.Wait()

	report.CompletedAt = r.now().UTC()
	report.Summarize()
	logger.Info("questionnaire finished",
		"succeeded", report.Summary.Succeeded,
		"failed", report.Summary.Failed,
		"attempts", report.Summary.Attempts)
	return report, ctx.Err()
}
