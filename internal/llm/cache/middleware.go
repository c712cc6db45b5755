// Package cache serves repeated provider calls from a response cache keyed by
// the request's idempotency key. A miss takes a short lease so concurrent
// identical requests compute the answer once.
//
// Answer retries change the prompt (the feedback section grows), so a retry
// never hits the entry of the attempt it replaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

const (
	leaseTimeout       = 30 * time.Second
	retryCheckInterval = 100 * time.Millisecond
	cleanupTimeout     = 5 * time.Second

	minIdempotencyKeyLength = 8
	maxIdempotencyKeyLength = 256
)

// Entry is the cached form of a response.
type Entry struct {
	Provider       string                 `json:"provider"`
	Model          string                 `json:"model"`
	Content        string                 `json:"content"`
	FinishReason   transport.FinishReason `json:"finish_reason"`
	Citations      []string               `json:"citations,omitempty"`
	RequestIDs     []string               `json:"request_ids,omitempty"`
	Usage          transport.Usage        `json:"usage"`
	StoredAtUnixMs int64                  `json:"stored_at_ms"`
}

// Cache is the caching middleware state.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64
}

// New returns a Cache writing entries with ttl. A zero ttl keeps entries
// until the store evicts them.
func New(store Store, ttl time.Duration) *Cache {
	return &Cache{
		store:  store,
		ttl:    ttl,
		logger: slog.Default().With("component", "cache"),
	}
}

// Middleware returns the caching middleware.
func (c *Cache) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			key, err := buildKey(req)
			if err != nil {
				c.logger.Debug("request not cacheable", "error", err)
				return next.Handle(ctx, req)
			}
			return c.handle(ctx, next, req, key)
		})
	}
}

func (c *Cache) handle(ctx context.Context, next transport.Handler, req *transport.Request, key string) (*transport.Response, error) {
	leaseKey := key + ":lease"
	status, raw, err := c.store.CheckAndLease(ctx, key, leaseKey, leaseTimeout)
	if err != nil {
		c.errors.Add(1)
		c.logger.Warn("cache/lease operation error", "error", err, "key", key)
		return next.Handle(ctx, req)
	}

	switch status {
	case Hit:
		if resp, decodeErr := decode(raw); decodeErr == nil {
			c.hits.Add(1)
			c.logger.Debug("cache hit", "key", key, "provider", req.Provider, "model", req.Model)
			return resp, nil
		}
		c.errors.Add(1)
	case LeaseHeld:
		c.misses.Add(1)
		timer := time.NewTimer(retryCheckInterval)
		select {
		case <-timer.C:
			if b, getErr := c.store.Get(ctx, key); getErr == nil {
				if resp, decodeErr := decode(b); decodeErr == nil {
					c.hits.Add(1)
					return resp, nil
				}
			}
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
		return next.Handle(ctx, req)
	case LeaseAcquired:
		c.misses.Add(1)
		defer c.release(leaseKey)
	}

	resp, err := next.Handle(ctx, req)
	if err != nil {
		return nil, err
	}
	if setErr := c.set(ctx, key, req, resp); setErr != nil {
		c.errors.Add(1)
		c.logger.Warn("cache set error", "error", setErr, "key", key)
	}
	return resp, nil
}

// release drops the lease even when ctx was cancelled.
func (c *Cache) release(leaseKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := c.store.Release(ctx, leaseKey); err != nil {
		c.logger.Warn("lease cleanup error", "error", err, "key", leaseKey)
	}
}

func (c *Cache) set(ctx context.Context, key string, req *transport.Request, resp *transport.Response) error {
	entry := Entry{
		Provider:       req.Provider,
		Model:          req.Model,
		Content:        resp.Content,
		FinishReason:   resp.FinishReason,
		Citations:      resp.Citations,
		RequestIDs:     resp.ProviderRequestIDs,
		Usage:          resp.Usage,
		StoredAtUnixMs: time.Now().UnixMilli(),
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return c.store.Set(ctx, key, b, c.ttl)
}

func decode(raw []byte) (*transport.Response, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("cache entry unmarshal failed: %w", err)
	}
	return &transport.Response{
		Content:            e.Content,
		FinishReason:       e.FinishReason,
		Citations:          e.Citations,
		ProviderRequestIDs: e.RequestIDs,
		Usage:              e.Usage,
		Cached:             true,
	}, nil
}

var errNotCacheable = errors.New("request not cacheable")

// buildKey returns llm:{tenant}:{operation}:{idemkey} for requests carrying a
// usable idempotency key.
func buildKey(req *transport.Request) (string, error) {
	switch {
	case req.Operation == "":
		return "", fmt.Errorf("%w: operation is required", errNotCacheable)
	case len(req.IdempotencyKey) < minIdempotencyKeyLength:
		return "", fmt.Errorf("%w: idempotency key too short (min %d chars)", errNotCacheable, minIdempotencyKeyLength)
	case len(req.IdempotencyKey) > maxIdempotencyKeyLength:
		return "", fmt.Errorf("%w: idempotency key too long (max %d chars)", errNotCacheable, maxIdempotencyKeyLength)
	}
	return transport.CacheKey(req.TenantID, req.Operation, transport.IdemKey(req.IdempotencyKey)), nil
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Errors  int64   `json:"errors"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, Errors: c.errors.Load(), HitRate: rate}
}

// IsMiss reports whether err is a cache miss.
func IsMiss(err error) bool { return errors.Is(err, llmerrors.ErrCacheMiss) }
