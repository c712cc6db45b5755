// Package ratelimit throttles provider calls with a per-key local token bucket
// and an optional fixed-window limit shared through Redis.
//
// When Redis misbehaves the limiter enters degraded mode and keeps enforcing
// the local bucket, or a conservative fallback bucket when local limiting is
// off, so an outage never turns into unlimited throughput.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

const (
	// DefaultRateLimit is the fallback bucket rate used in degraded mode.
	DefaultRateLimit = 10

	// LimiterTTL is how long an idle local limiter is kept.
	LimiterTTL = time.Hour

	// cleanupEvery triggers an idle-limiter sweep every N requests.
	cleanupEvery = 1024
)

var (
	errNegativeRate  = errors.New("invalid local rate limit: tokens_per_second cannot be negative")
	errNegativeBurst = errors.New("invalid local rate limit: burst_size cannot be negative")
	errBurstNoRate   = errors.New("invalid local rate limit: burst_size must be 0 when tokens_per_second is 0")
	errNegativeRPS   = errors.New("invalid global rate limit: requests_per_second cannot be negative")
)

// WindowCounter counts requests per key in fixed windows shared by every
// process.
type WindowCounter interface {
	// Allow records one request and reports whether it fits within limit.
	// When denied, retryAfter is the time until the window resets.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

type timedLimiter struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// Limiter is the rate limiting middleware state.
type Limiter struct {
	local  configuration.LocalRateLimitConfig
	global configuration.GlobalRateLimitConfig

	mu       sync.Mutex
	limiters map[string]*timedLimiter
	requests atomic.Int64

	counter  WindowCounter
	degraded atomic.Bool

	logger *slog.Logger
}

// New validates cfg and returns a Limiter. counter may be nil, in which case
// global limiting is skipped even when enabled.
func New(cfg configuration.RateLimitConfig, counter WindowCounter) (*Limiter, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	l := &Limiter{
		local:    cfg.Local,
		global:   cfg.Global,
		limiters: make(map[string]*timedLimiter),
		counter:  counter,
		logger:   slog.Default().With("component", "ratelimit"),
	}
	if cfg.Global.Enabled && counter == nil {
		l.logger.Warn("global rate limit enabled without a counter, using local limits only")
	}
	return l, nil
}

func validate(cfg configuration.RateLimitConfig) error {
	if cfg.Local.Enabled {
		switch {
		case cfg.Local.TokensPerSecond < 0:
			return fmt.Errorf("%w (got %f)", errNegativeRate, cfg.Local.TokensPerSecond)
		case cfg.Local.BurstSize < 0:
			return fmt.Errorf("%w (got %d)", errNegativeBurst, cfg.Local.BurstSize)
		case cfg.Local.TokensPerSecond == 0 && cfg.Local.BurstSize > 0:
			return errBurstNoRate
		}
	}
	if cfg.Global.Enabled && cfg.Global.RequestsPerSecond < 0 {
		return fmt.Errorf("%w (got %d)", errNegativeRPS, cfg.Global.RequestsPerSecond)
	}
	return nil
}

// Middleware returns the rate limiting middleware.
func (l *Limiter) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if err := l.Check(ctx, buildKey(req)); err != nil {
				return nil, err
			}
			return next.Handle(ctx, req)
		})
	}
}

// Check applies every configured limit to key.
func (l *Limiter) Check(ctx context.Context, key string) error {
	if n := l.requests.Add(1); n%cleanupEvery == 0 {
		l.CleanupStale(time.Now().Add(-LimiterTTL))
	}

	if l.local.Enabled {
		if err := l.checkBucket(key, l.local.TokensPerSecond, l.local.BurstSize, "local"); err != nil {
			return err
		}
	}

	if !l.global.Enabled || l.counter == nil {
		return nil
	}
	if !l.degraded.Load() {
		err := l.checkGlobal(ctx, key)
		if err == nil || !isInfrastructureError(err) {
			return err
		}
		l.logger.Warn("redis error, switching to degraded mode", "error", err)
		l.degraded.Store(true)
	}
	if !l.local.Enabled {
		return l.checkBucket("fallback:"+key, DefaultRateLimit, DefaultRateLimit, "fallback")
	}
	return nil
}

// Degraded reports whether the global limiter has been abandoned.
func (l *Limiter) Degraded() bool { return l.degraded.Load() }

// checkBucket takes a token from key's bucket. On refusal it computes the
// wait without consuming a token.
func (l *Limiter) checkBucket(key string, perSecond float64, burst int, source string) error {
	lim := l.limiter(key, perSecond, burst)
	if lim.Allow() {
		return nil
	}
	reservation := lim.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()

	retryAfter := int(math.Ceil(delay.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return &llmerrors.RateLimitError{
		Provider:   source,
		Limit:      int(perSecond),
		RetryAfter: retryAfter,
		LocalLimit: true,
	}
}

func (l *Limiter) limiter(key string, perSecond float64, burst int) *rate.Limiter {
	now := time.Now().UnixNano()
	l.mu.Lock()
	defer l.mu.Unlock()
	tl, ok := l.limiters[key]
	if !ok {
		tl = &timedLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		l.limiters[key] = tl
	}
	tl.lastUsed.Store(now)
	return tl.limiter
}

func (l *Limiter) checkGlobal(ctx context.Context, key string) error {
	limit := l.global.RequestsPerSecond
	if limit == 0 {
		return nil
	}
	allowed, retryAfter, err := l.counter.Allow(ctx, "rl:global:"+key, limit, time.Second)
	if err != nil {
		return fmt.Errorf("global rate limit check failed: %w", err)
	}
	if allowed {
		return nil
	}
	secs := int(math.Ceil(retryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return &llmerrors.RateLimitError{Provider: "global", Limit: limit, RetryAfter: secs}
}

// CleanupStale drops local limiters idle since before that have refilled.
// Limiters still owing tokens are kept so a sweep never grants a fresh burst.
func (l *Limiter) CleanupStale(before time.Time) int {
	cutoff := before.UnixNano()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, tl := range l.limiters {
		if tl.lastUsed.Load() >= cutoff {
			continue
		}
		if tl.limiter.Tokens() >= float64(tl.limiter.Burst()) {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

// Stats is a snapshot of limiter state.
type Stats struct {
	LocalLimiters int  `json:"local_limiters"`
	GlobalEnabled bool `json:"global_enabled"`
	DegradedMode  bool `json:"degraded_mode"`
}

// Stats returns current limiter counts and mode.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	n := len(l.limiters)
	l.mu.Unlock()
	return Stats{
		LocalLimiters: n,
		GlobalEnabled: l.global.Enabled && l.counter != nil,
		DegradedMode:  l.degraded.Load(),
	}
}

// buildKey scopes limits as tenant:provider:model:operation.
func buildKey(req *transport.Request) string {
	return fmt.Sprintf("%s:%s:%s:%s", req.TenantID, req.Provider, req.Model, req.Operation)
}

// isInfrastructureError separates Redis outages from limiter decisions.
func isInfrastructureError(err error) bool {
	var redisErr redis.Error
	if errors.As(err, &redisErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.ErrClosed) || errors.Is(err, errUnexpectedReply) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
