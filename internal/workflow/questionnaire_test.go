package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ahrav/go-questionnaire/internal/activity"
	"github.com/ahrav/go-questionnaire/internal/backend"
	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/orchestrator"
)

func questionnaire() domain.Questionnaire {
	return domain.Questionnaire{
		Name:       "vendor review",
		Context:    "Azure",
		CharLimit:  300,
		MaxRetries: 2,
		Questions: []domain.QuestionItem{
			{ID: "enc", Question: "Is data encrypted at rest?"},
			{Question: "Does it support SSO?"},
		},
	}
}

func newEnv(t *testing.T, cfg backend.OfflineConfig) *testsuite.TestWorkflowEnvironment {
	t.Helper()
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	acts := activity.NewActivities(orchestrator.New(backend.NewOffline(cfg)), nil)
	env.RegisterActivity(acts.AnswerQuestion)
	return env
}

func TestQuestionnaireWorkflow_AnswersInOrder(t *testing.T) {
	env := newEnv(t, backend.OfflineConfig{
		Template:        "Yes, {context} covers this. See https://learn.microsoft.com/azure/security.",
		InjectCitations: true,
	})
	env.ExecuteWorkflow(QuestionnaireWorkflow, Request{Questionnaire: questionnaire(), Verbose: true})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var report domain.Report
	require.NoError(t, env.GetWorkflowResult(&report))
	require.Len(t, report.Items, 2)
	assert.Equal(t, "enc", report.Items[0].ID)
	assert.Equal(t, "q2", report.Items[1].ID)
	for _, it := range report.Items {
		assert.True(t, it.Success, it.ID)
		assert.NotContains(t, it.Answer, "【")
		assert.Equal(t, []string{"https://learn.microsoft.com/azure/security"}, it.URLs())
		assert.NotEmpty(t, it.Transcript)
	}
	assert.Equal(t, domain.ReportSummary{Total: 2, Succeeded: 2, Attempts: 2}, report.Summary)
	assert.NotEmpty(t, report.RunID)

	val, err := env.QueryWorkflow(ProgressQuery)
	require.NoError(t, err)
	var p Progress
	require.NoError(t, val.Get(&p))
	assert.Equal(t, Progress{Done: 2, Total: 2, Succeeded: 2}, p)
}

func TestQuestionnaireWorkflow_ExhaustedItemsAreReported(t *testing.T) {
	env := newEnv(t, backend.OfflineConfig{FailAttempts: []int{1, 2}})
	env.ExecuteWorkflow(QuestionnaireWorkflow, Request{Questionnaire: questionnaire()})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var report domain.Report
	require.NoError(t, env.GetWorkflowResult(&report))
	for _, it := range report.Items {
		assert.False(t, it.Success)
		assert.Equal(t, 2, it.Attempts)
		assert.NotEmpty(t, it.LastFailure)
		assert.Empty(t, it.Error)
		assert.Empty(t, it.Transcript)
	}
	assert.Equal(t, domain.ReportSummary{Total: 2, Failed: 2, Attempts: 4}, report.Summary)
}

func TestQuestionnaireWorkflow_ActivityErrorLandsOnItem(t *testing.T) {
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterActivity(activity.NewActivities(nil, nil).AnswerQuestion)

	calls := 0
	env.OnActivity(activity.AnswerQuestionName, mock.Anything, mock.Anything).Return(
		func(_ context.Context, in activity.AnswerInput) (*activity.AnswerOutput, error) {
			calls++
			if in.ItemID == "enc" {
				return nil, temporal.NewNonRetryableApplicationError("boom", activity.ErrorBackend, errors.New("provider down"))
			}
			return &activity.AnswerOutput{
				ItemID: in.ItemID,
				Result: domain.Result{Success: true, Answer: "Yes.", Links: []domain.Link{}, Attempts: 1},
			}, nil
		})

	env.ExecuteWorkflow(QuestionnaireWorkflow, Request{Questionnaire: questionnaire()})
	require.NoError(t, env.GetWorkflowError())

	var report domain.Report
	require.NoError(t, env.GetWorkflowResult(&report))
	assert.Contains(t, report.Items[0].Error, "boom")
	assert.False(t, report.Items[0].Success)
	assert.True(t, report.Items[1].Success)
	assert.Equal(t, 2, calls)
	env.AssertExpectations(t)
}

func TestQuestionnaireWorkflow_InvalidQuestionnaire(t *testing.T) {
	env := newEnv(t, backend.OfflineConfig{})
	env.ExecuteWorkflow(QuestionnaireWorkflow, Request{Questionnaire: domain.Questionnaire{Name: "empty"}})

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, activity.ErrorValidation, appErr.Type())
	assert.True(t, appErr.NonRetryable())
}

func TestQuestionnaireWorkflow_Deterministic(t *testing.T) {
	var first domain.Report
	for i := range 3 {
		env := newEnv(t, backend.OfflineConfig{Template: "Yes."})
		env.ExecuteWorkflow(QuestionnaireWorkflow, Request{Questionnaire: questionnaire()})
		require.NoError(t, env.GetWorkflowError())

		var report domain.Report
		require.NoError(t, env.GetWorkflowResult(&report))
		if i == 0 {
			first = report
			continue
		}
		assert.Equal(t, first.Items, report.Items, "run %d", i+1)
	}
}
