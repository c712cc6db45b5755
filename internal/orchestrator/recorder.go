package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// Recorder receives the human-readable reasoning trace of a run.
// Record is fire-and-forget: it must not block for long and never affects
// control flow.
type Recorder interface {
	Record(msg string)
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(msg string)

// Record implements Recorder.
func (f RecorderFunc) Record(msg string) { f(msg) }

// NopRecorder discards every message.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(string) {}

// SlogRecorder writes trace lines to a structured logger.
type SlogRecorder struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogRecorder returns a recorder that logs each message at level.
// A nil logger uses slog.Default().
func NewSlogRecorder(logger *slog.Logger, level slog.Level) *SlogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogRecorder{logger: logger.With("component", "reasoning"), level: level}
}

// Record implements Recorder.
func (r *SlogRecorder) Record(msg string) {
	r.logger.Log(context.Background(), r.level, msg)
}

// Transcript keeps the trace in memory for display after a run.
// It is safe for concurrent use.
type Transcript struct {
	mu    sync.Mutex
	lines []string
}

// Record implements Recorder.
func (t *Transcript) Record(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, msg)
}

// Lines returns a copy of the recorded lines.
func (t *Transcript) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// String joins the recorded lines with newlines.
func (t *Transcript) String() string {
	return strings.Join(t.Lines(), "\n")
}

// Reset discards recorded lines.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
}

// MultiRecorder fans each message out to every recorder in order.
type MultiRecorder []Recorder

// Record implements Recorder.
func (m MultiRecorder) Record(msg string) {
	for _, r := range m {
		if r != nil {
			r.Record(msg)
		}
	}
}
