// Package circuitbreaker stops calling a provider/model pair after repeated
// failures and probes it again after a cool-down.
package circuitbreaker

import (
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// jitterDivisor bounds open-timeout jitter to a tenth of the timeout.
const jitterDivisor = 10

// State is a breaker's position in the closed → open → half-open cycle.
type State int32

const (
	// StateClosed allows requests through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows a limited number of probes.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker is one lock-free state machine.
type breaker struct {
	state           atomic.Int32
	failures        atomic.Int32
	successes       atomic.Int32
	lastFailureTime atomic.Int64
	probes          atomic.Int32

	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	maxProbes        int

	allowed  atomic.Int64
	rejected atomic.Int64

	now    func() time.Time
	logger *slog.Logger
}

func newBreaker(failureThreshold, successThreshold, maxProbes int, openTimeout time.Duration, now func() time.Time, logger *slog.Logger) *breaker {
	b := &breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		maxProbes:        maxProbes,
		now:              now,
		logger:           logger,
	}
	b.state.Store(int32(StateClosed))
	return b
}

func (b *breaker) State() State { return State(b.state.Load()) }

func (b *breaker) jitter() time.Duration {
	j := b.openTimeout / jitterDivisor
	if j <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(j))) // #nosec G404 -- jitter does not need crypto randomness
}

// allow reports whether a call may proceed. When it returns a non-nil
// release, the call is a half-open probe and release must run afterwards.
func (b *breaker) allow() (ok bool, release func()) {
	switch b.State() {
	case StateClosed:
		b.allowed.Add(1)
		return true, nil
	case StateOpen:
		last := time.Unix(0, b.lastFailureTime.Load())
		if b.now().Sub(last) <= b.openTimeout+b.jitter() {
			b.rejected.Add(1)
			return false, nil
		}
		b.transition(StateOpen, StateHalfOpen)
	}
	return b.takeProbe()
}

func (b *breaker) takeProbe() (bool, func()) {
	for {
		cur := b.probes.Load()
		if int(cur) >= b.maxProbes {
			b.rejected.Add(1)
			return false, nil
		}
		if b.probes.CompareAndSwap(cur, cur+1) {
			b.allowed.Add(1)
			return true, func() {
				for {
					c := b.probes.Load()
					if c == 0 || b.probes.CompareAndSwap(c, c-1) {
						return
					}
				}
			}
		}
	}
}

func (b *breaker) recordSuccess() {
	switch b.State() {
	case StateClosed:
		b.failures.Store(0)
	case StateHalfOpen:
		if int(b.successes.Add(1)) >= b.successThreshold {
			b.transition(StateHalfOpen, StateClosed)
		}
	}
}

func (b *breaker) recordFailure() {
	b.lastFailureTime.Store(b.now().UnixNano())
	switch b.State() {
	case StateClosed:
		if int(b.failures.Add(1)) >= b.failureThreshold {
			b.transition(StateClosed, StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateHalfOpen, StateOpen)
	}
}

// transition moves from → to if the breaker is still in from, resetting
// counters. Losing the race is fine: another goroutine made the move.
func (b *breaker) transition(from, to State) {
	if !b.state.CompareAndSwap(int32(from), int32(to)) {
		return
	}
	b.failures.Store(0)
	b.successes.Store(0)
	b.probes.Store(0)
	b.logger.Info("circuit breaker state transition", "from", from.String(), "to", to.String())
}
