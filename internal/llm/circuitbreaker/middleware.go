package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

// Breakers holds one breaker per provider:model key.
type Breakers struct {
	cfg configuration.CircuitBreakerConfig

	mu       sync.Mutex
	breakers map[string]*breaker

	now    func() time.Time
	logger *slog.Logger
}

// New returns an empty breaker set.
func New(cfg configuration.CircuitBreakerConfig) *Breakers {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = configuration.DefaultFailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = configuration.DefaultSuccessThreshold
	}
	if cfg.HalfOpenProbes <= 0 {
		cfg.HalfOpenProbes = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = configuration.DefaultOpenTimeout
	}
	return &Breakers{
		cfg:      cfg,
		breakers: make(map[string]*breaker),
		now:      time.Now,
		logger:   slog.Default().With("component", "circuit_breaker"),
	}
}

func (s *Breakers) get(key string) *breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[key]
	if !ok {
		b = newBreaker(s.cfg.FailureThreshold, s.cfg.SuccessThreshold, s.cfg.HalfOpenProbes, s.cfg.OpenTimeout, s.now, s.logger.With("key", key))
		s.breakers[key] = b
	}
	return b
}

// Middleware returns the circuit breaking middleware.
func (s *Breakers) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			key := req.Provider + ":" + req.Model
			b := s.get(key)

			ok, release := b.allow()
			if !ok {
				return nil, &llmerrors.CircuitBreakerError{
					Provider: req.Provider,
					Model:    req.Model,
					State:    b.State().String(),
					ResetAt:  time.Unix(0, b.lastFailureTime.Load()).Add(s.cfg.OpenTimeout).Unix(),
				}
			}
			if release != nil {
				defer release()
			}

			resp, err := next.Handle(ctx, req)
			switch {
			case err == nil:
				b.recordSuccess()
			case countsAsFailure(err):
				b.recordFailure()
			}
			return resp, err
		})
	}
}

// countsAsFailure excludes caller cancellations and request-side errors,
// which say nothing about provider health.
func countsAsFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var providerErr *llmerrors.ProviderError
	if errors.As(err, &providerErr) {
		switch providerErr.Type {
		case llmerrors.ErrorTypeValidation, llmerrors.ErrorTypeContent, llmerrors.ErrorTypeAuth, llmerrors.ErrorTypePermission:
			return false
		}
	}
	return true
}

// Stats summarizes every breaker.
type Stats struct {
	TotalBreakers int            `json:"total_breakers"`
	StateCount    map[string]int `json:"state_count"`
	Open          []string       `json:"open,omitempty"`
	Allowed       int64          `json:"allowed"`
	Rejected      int64          `json:"rejected"`
}

// Stats returns a snapshot across all breakers.
func (s *Breakers) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{TotalBreakers: len(s.breakers), StateCount: map[string]int{}}
	for key, b := range s.breakers {
		state := b.State()
		st.StateCount[state.String()]++
		if state == StateOpen {
			st.Open = append(st.Open, key)
		}
		st.Allowed += b.allowed.Load()
		st.Rejected += b.rejected.Load()
	}
	sort.Strings(st.Open)
	return st
}

// State returns the state of the breaker for provider and model.
func (s *Breakers) State(provider, model string) State {
	return s.get(provider + ":" + model).State()
}
