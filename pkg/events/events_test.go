package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(key string) Envelope {
	return Envelope{
		ID:             "e-" + key,
		Type:           "questionnaire.answer_produced",
		Source:         "answer-activity",
		Version:        "1.0.0",
		Timestamp:      time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		IdempotencyKey: key,
		WorkflowID:     "wf",
		RunID:          "run",
		Payload:        json.RawMessage(`{"success":true}`),
	}
}

func TestEnvelopeValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{name: "missing id", mutate: func(e *Envelope) { e.ID = "" }},
		{name: "missing type", mutate: func(e *Envelope) { e.Type = "" }},
		{name: "missing key", mutate: func(e *Envelope) { e.IdempotencyKey = "" }},
		{name: "bad payload", mutate: func(e *Envelope) { e.Payload = json.RawMessage(`{`) }},
	}
	require.NoError(t, envelope("k").Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := envelope("k")
			tt.mutate(&env)
			assert.ErrorIs(t, env.Validate(), ErrInvalidEnvelope)
		})
	}
}

func TestSlogEventSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSlogEventSink(slog.New(slog.NewJSONHandler(&buf, nil)), slog.LevelInfo)
	ctx := context.Background()

	require.NoError(t, sink.Append(ctx, envelope("a")))
	require.NoError(t, sink.Append(ctx, envelope("a")))
	require.NoError(t, sink.Append(ctx, envelope("b")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "duplicate idempotency key must be dropped")

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "questionnaire.answer_produced", rec["event_type"])
	assert.Equal(t, "events", rec["component"])
	assert.Equal(t, `{"success":true}`, rec["payload"])
}

func TestSlogEventSink_RejectsInvalid(t *testing.T) {
	sink := NewSlogEventSink(nil, slog.LevelDebug)
	err := sink.Append(context.Background(), Envelope{})
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestNoOpEventSink(t *testing.T) {
	assert.NoError(t, NewNoOpEventSink().Append(context.Background(), Envelope{}))
}
