// Package workflow defines the Temporal workflow that answers a
// questionnaire.
//
// QuestionnaireWorkflow answers the questions one at a time, in file order,
// each through the AnswerQuestion activity. The orchestrator inside the
// activity owns the answer retries, so the activity retry policy only covers
// infrastructure failures such as a lost worker.
//
// Workflow code stays deterministic: time comes from workflow.Now and all
// I/O happens in the activity.
package workflow
