package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-questionnaire/internal/activity"
	"github.com/ahrav/go-questionnaire/internal/domain"
)

// Name is the registered workflow type.
const Name = "QuestionnaireWorkflow"

// ProgressQuery returns a Progress snapshot of a running workflow.
const ProgressQuery = "progress"

// DefaultActivityTimeout bounds one AnswerQuestion call when the request
// leaves ActivityTimeout unset.
const DefaultActivityTimeout = 5 * time.Minute

// Request is the workflow argument.
type Request struct {
	Questionnaire   domain.Questionnaire `json:"questionnaire"`
	Verbose         bool                 `json:"verbose,omitempty"`
	ActivityTimeout time.Duration        `json:"activity_timeout,omitempty"`
}

// Progress reports how many questions have been handled.
type Progress struct {
	Done      int `json:"done"`
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
}

// QuestionnaireWorkflow answers every question of req and returns the
// report. Items whose attempts were exhausted are reported as unsuccessful;
// other activity failures land in the item's Error. Only an invalid
// questionnaire or cancellation fails the workflow.
func QuestionnaireWorkflow(ctx workflow.Context, req Request) (*domain.Report, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "questionnaire.v", workflow.DefaultVersion, currentVersion)

	q := req.Questionnaire
	if err := q.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid questionnaire", activity.ErrorValidation, err)
	}
	q.Normalize()

	timeout := req.ActivityTimeout
	if timeout <= 0 {
		timeout = DefaultActivityTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        time.Minute,
			MaximumAttempts:        2,
			NonRetryableErrorTypes: []string{activity.ErrorValidation, activity.ErrorExhausted},
		},
	})

	info := workflow.GetInfo(ctx)
	logger := workflow.GetLogger(ctx)
	report := &domain.Report{
		RunID:     info.WorkflowExecution.RunID,
		Name:      q.Name,
		StartedAt: workflow.Now(ctx).UTC(),
		Items:     make([]domain.ItemResult, len(q.Questions)),
	}

	progress := Progress{Total: len(q.Questions)}
	if err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (Progress, error) {
		return progress, nil
	}); err != nil {
		return nil, err
	}

	for i, item := range q.Questions {
		report.Items[i] = domain.ItemResult{ID: item.ID, Question: item.Question, Result: domain.Failed(0, "")}

		in := activity.AnswerInput{ItemID: item.ID, Ask: q.Input(item, req.Verbose)}
		var out activity.AnswerOutput
		err := workflow.ExecuteActivity(ctx, activity.AnswerQuestionName, in).Get(ctx, &out)
		switch {
		case err == nil, exhausted(err, &out):
			report.Items[i].Result = out.Result
			report.Items[i].Transcript = out.Transcript
		case temporal.IsCanceledError(err):
			return nil, err
		default:
			report.Items[i].Error = err.Error()
			logger.Warn("question errored", "id", item.ID, "error", err)
		}

		progress.Done++
		if report.Items[i].Success {
			progress.Succeeded++
		}
	}

	report.CompletedAt = workflow.Now(ctx).UTC()
	report.Summarize()
	logger.Info("questionnaire finished",
		"succeeded", report.Summary.Succeeded,
		"failed", report.Summary.Failed,
		"attempts", report.Summary.Attempts)
	return report, nil
}

// exhausted decodes the failed AnswerOutput carried by an ErrorExhausted
// activity failure into out.
func exhausted(err error, out *activity.AnswerOutput) bool {
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() != activity.ErrorExhausted || !appErr.HasDetails() {
		return false
	}
	return appErr.Details(out) == nil
}
