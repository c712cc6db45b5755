package events

import (
	"context"
	"log/slog"
	"sync"
)

// SlogEventSink writes each event as one structured log record. Events with
// an idempotency key it has already logged are dropped.
type SlogEventSink struct {
	logger *slog.Logger
	level  slog.Level

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSlogEventSink returns a sink logging at level through logger, or through
// slog.Default when logger is nil.
func NewSlogEventSink(logger *slog.Logger, level slog.Level) *SlogEventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogEventSink{
		logger: logger.With("component", "events"),
		level:  level,
		seen:   make(map[string]struct{}),
	}
}

// Append implements EventSink.
func (s *SlogEventSink) Append(ctx context.Context, env Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if _, dup := s.seen[env.IdempotencyKey]; dup {
		s.mu.Unlock()
		return nil
	}
	s.seen[env.IdempotencyKey] = struct{}{}
	s.mu.Unlock()

	s.logger.LogAttrs(ctx, s.level, "event",
		slog.String("event_id", env.ID),
		slog.String("event_type", env.Type),
		slog.String("source", env.Source),
		slog.String("version", env.Version),
		slog.Time("timestamp", env.Timestamp),
		slog.String("idempotency_key", env.IdempotencyKey),
		slog.String("workflow_id", env.WorkflowID),
		slog.String("run_id", env.RunID),
		slog.String("payload", string(env.Payload)),
	)
	return nil
}
