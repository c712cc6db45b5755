// Package events defines the envelope that wraps domain events and the sink
// interface they are appended to.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidEnvelope is returned by Validate for envelopes missing routing fields.
var ErrInvalidEnvelope = errors.New("invalid event envelope")

// Envelope wraps a domain event payload with routing and correlation metadata.
type Envelope struct {
	// ID is unique per emission.
	ID string `json:"id"`

	// Type routes the event, e.g. "questionnaire.answer_produced".
	Type string `json:"type"`

	// Source names the emitting component.
	Source string `json:"source"`

	// Version is the payload schema version.
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is stable across activity retries so sinks can drop
	// duplicates.
	IdempotencyKey string `json:"idempotency_key"`

	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	Payload json.RawMessage `json:"payload"`
}

// Validate checks the fields every sink relies on.
func (e Envelope) Validate() error {
	switch {
	case e.ID == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("id is required"))
	case e.Type == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("type is required"))
	case e.IdempotencyKey == "":
		return errors.Join(ErrInvalidEnvelope, errors.New("idempotency key is required"))
	case len(e.Payload) > 0 && !json.Valid(e.Payload):
		return errors.Join(ErrInvalidEnvelope, errors.New("payload is not valid JSON"))
	}
	return nil
}

// EventSink receives emitted events. Append should return quickly; callers
// never fail their primary operation because of a sink error.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (NoOpEventSink) Append(context.Context, Envelope) error { return nil }

// NewNoOpEventSink returns a sink that discards events.
func NewNoOpEventSink() EventSink {
	return NoOpEventSink{}
}
