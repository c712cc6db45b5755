// Package activity implements the Temporal activity that answers one
// question through the orchestrator.
package activity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/orchestrator"
	base "github.com/ahrav/go-questionnaire/pkg/activity"
	"github.com/ahrav/go-questionnaire/pkg/events"
)

// AnswerQuestionName is the registered activity name.
const AnswerQuestionName = "AnswerQuestion"

// EventAnswerProduced is emitted once per completed AnswerQuestion call.
const EventAnswerProduced = "questionnaire.answer_produced"

// Asker runs the answer-and-validate loop. *orchestrator.Orchestrator
// implements it.
type Asker interface {
	RunWithRecorder(ctx context.Context, in domain.AskInput, extra orchestrator.Recorder) (domain.Result, error)
}

// AnswerInput is the activity argument.
type AnswerInput struct {
	ItemID string          `json:"item_id"`
	Ask    domain.AskInput `json:"ask"`
}

// AnswerOutput is the activity result. Transcript is filled only for
// verbose asks.
type AnswerOutput struct {
	ItemID     string        `json:"item_id"`
	Result     domain.Result `json:"result"`
	Transcript []string      `json:"transcript,omitempty"`
}

// Activities groups the questionnaire activities.
type Activities struct {
	base.Base
	asker Asker
	now   func() time.Time
}

// NewActivities returns activities answering through asker and emitting to
// sink.
func NewActivities(asker Asker, sink events.EventSink) *Activities {
	return &Activities{Base: base.NewBase(sink), asker: asker, now: time.Now}
}

// AnswerQuestion answers a single question. Every orchestrator trace line is
// also sent as a heartbeat.
//
// A question that exhausts its attempts fails with a non-retryable
// ErrorExhausted application error whose details hold the AnswerOutput;
// retrying the activity would only repeat the orchestrator's own retries.
func (a *Activities) AnswerQuestion(ctx context.Context, in AnswerInput) (*AnswerOutput, error) {
	if err := in.Ask.Validate(); err != nil {
		return nil, nonRetryable(ErrorValidation, err, "invalid ask input")
	}

	var transcript orchestrator.Transcript
	rec := orchestrator.MultiRecorder{
		orchestrator.RecorderFunc(func(msg string) { base.Heartbeat(ctx, msg) }),
	}
	if in.Ask.Verbose {
		rec = append(rec, &transcript)
	}

	res, err := a.asker.RunWithRecorder(ctx, in.Ask, rec)
	if err != nil {
		base.LogError(ctx, "answer failed", "item_id", in.ItemID, "error", err)
		return nil, classify(err)
	}

	out := &AnswerOutput{ItemID: in.ItemID, Result: res}
	if in.Ask.Verbose {
		out.Transcript = transcript.Lines()
	}
	a.emitAnswerProduced(ctx, in, res)

	if !res.Success {
		base.Log(ctx, "question not answered", "item_id", in.ItemID, "attempts", res.Attempts)
		return nil, nonRetryable(ErrorExhausted, res.Err(), "question not answered", out)
	}
	base.Log(ctx, "question answered", "item_id", in.ItemID, "attempts", res.Attempts, "links", len(res.Links))
	return out, nil
}

type answerProducedEvent struct {
	ItemID      string `json:"item_id"`
	Success     bool   `json:"success"`
	Attempts    int    `json:"attempts"`
	Links       int    `json:"links"`
	LastFailure string `json:"last_failure,omitempty"`
}

func (a *Activities) emitAnswerProduced(ctx context.Context, in AnswerInput, res domain.Result) {
	payload, err := json.Marshal(answerProducedEvent{
		ItemID:      in.ItemID,
		Success:     res.Success,
		Attempts:    res.Attempts,
		Links:       len(res.Links),
		LastFailure: res.LastFailure,
	})
	if err != nil {
		base.LogError(ctx, "marshal event", "error", err)
		return
	}

	exec := base.ExecutionOf(ctx)
	a.Emit(ctx, events.Envelope{
		ID:             uuid.NewString(),
		Type:           EventAnswerProduced,
		Source:         "answer-activity",
		Version:        "1.0.0",
		Timestamp:      a.now().UTC(),
		IdempotencyKey: idempotencyKey(exec, in),
		WorkflowID:     exec.WorkflowID,
		RunID:          exec.RunID,
		Payload:        payload,
	})
}

// idempotencyKey is stable across activity attempts of the same execution.
func idempotencyKey(exec base.Execution, in AnswerInput) string {
	h := sha256.New()
	for _, part := range []string{exec.WorkflowID, exec.RunID, exec.ActivityID, in.ItemID, in.Ask.Question} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
