// Package worker wires the questionnaire workflow and activities into a
// Temporal worker and submits runs to it.
package worker

import (
	sdkactivity "go.temporal.io/sdk/activity"
	sdkworkflow "go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-questionnaire/internal/activity"
	"github.com/ahrav/go-questionnaire/internal/workflow"
)

// Registry is the registration surface shared by sdk workers and the test
// workflow environment.
type Registry interface {
	RegisterWorkflowWithOptions(w any, options sdkworkflow.RegisterOptions)
	RegisterActivityWithOptions(a any, options sdkactivity.RegisterOptions)
}

// RegisterAll registers the questionnaire workflow and its activity under
// their stable names. Call it once, before the worker starts.
func RegisterAll(r Registry, acts *activity.Activities) {
	r.RegisterWorkflowWithOptions(workflow.QuestionnaireWorkflow, sdkworkflow.RegisterOptions{Name: workflow.Name})
	r.RegisterActivityWithOptions(acts.AnswerQuestion, sdkactivity.RegisterOptions{Name: activity.AnswerQuestionName})
}
