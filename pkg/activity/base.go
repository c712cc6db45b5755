// Package activity holds the plumbing shared by Temporal activity
// implementations: execution metadata, best-effort event emission,
// heartbeats and logging that also work outside a Temporal worker.
package activity

import (
	"context"
	"log/slog"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-questionnaire/pkg/events"
)

// Execution identifies the activity run that is emitting.
type Execution struct {
	WorkflowID string
	RunID      string
	ActivityID string
	Attempt    int32
}

// local is reported when the code runs outside a Temporal activity.
var local = Execution{WorkflowID: "local", RunID: "local", ActivityID: "local", Attempt: 1}

// Base is embedded by activity structs.
type Base struct {
	sink events.EventSink
}

// NewBase returns a Base emitting to sink. A nil sink disables events.
func NewBase(sink events.EventSink) Base {
	return Base{sink: sink}
}

// ExecutionOf returns the Temporal execution behind ctx, or placeholder
// values when ctx is not an activity context (plain unit tests, CLI runs).
func ExecutionOf(ctx context.Context) (exec Execution) {
	defer func() {
		if recover() != nil {
			exec = local
		}
	}()
	info := activity.GetInfo(ctx)
	return Execution{
		WorkflowID: info.WorkflowExecution.ID,
		RunID:      info.WorkflowExecution.RunID,
		ActivityID: info.ActivityID,
		Attempt:    info.Attempt,
	}
}

const (
	emitAttempts = 2
	emitDelay    = 200 * time.Millisecond
)

// Emit appends env to the sink, retrying once after a short delay. Failures
// are logged and never returned.
func (b *Base) Emit(ctx context.Context, env events.Envelope) {
	if b.sink == nil {
		return
	}

	var err error
	for attempt := range emitAttempts {
		if attempt > 0 {
			select {
			case <-time.After(emitDelay):
			case <-ctx.Done():
				LogError(ctx, "event emission cancelled", "event_type", env.Type)
				return
			}
		}
		if err = b.sink.Append(ctx, env); err == nil {
			Log(ctx, "event emitted", "event_type", env.Type, "idempotency_key", env.IdempotencyKey)
			return
		}
	}
	LogError(ctx, "event emission failed", "event_type", env.Type, "attempts", emitAttempts, "error", err)
}

// Heartbeat records a heartbeat; it is a no-op outside an activity.
func Heartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}

// Log writes an info record through the activity logger, falling back to
// slog.Default outside an activity.
func Log(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		if recover() != nil {
			slog.Default().InfoContext(ctx, msg, keyvals...)
		}
	}()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// LogError is Log at error level.
func LogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() {
		if recover() != nil {
			slog.Default().ErrorContext(ctx, msg, keyvals...)
		}
	}()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}
