package activity

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-questionnaire/pkg/events"
)

type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []events.Envelope
}

func (s *flakySink) Append(_ context.Context, env events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return errors.New("sink unavailable")
	}
	s.got = append(s.got, env)
	return nil
}

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestExecutionOf_OutsideActivity(t *testing.T) {
	assert.Equal(t, local, ExecutionOf(context.Background()))
}

func TestEmit(t *testing.T) {
	env := events.Envelope{ID: "1", Type: "t", IdempotencyKey: "k"}

	t.Run("nil sink", func(t *testing.T) {
		b := NewBase(nil)
		b.Emit(context.Background(), env)
	})

	t.Run("retries once", func(t *testing.T) {
		sink := &flakySink{failures: 1}
		b := NewBase(sink)
		b.Emit(context.Background(), env)
		assert.Equal(t, 2, sink.calls)
		require.Len(t, sink.got, 1)
	})

	t.Run("gives up and logs", func(t *testing.T) {
		buf := captureDefault(t)
		sink := &flakySink{failures: 5}
		b := NewBase(sink)
		b.Emit(context.Background(), env)
		assert.Equal(t, emitAttempts, sink.calls)
		assert.Contains(t, buf.String(), "event emission failed")
	})

	t.Run("cancelled between attempts", func(t *testing.T) {
		buf := captureDefault(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		sink := &flakySink{failures: 5}
		b := NewBase(sink)
		b.Emit(ctx, env)
		assert.Equal(t, 1, sink.calls)
		assert.Contains(t, buf.String(), "event emission cancelled")
	})
}

func TestHeartbeatOutsideActivity(t *testing.T) {
	assert.NotPanics(t, func() { Heartbeat(context.Background(), "x") })
}
