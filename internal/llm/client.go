// Package llm is the resilient HTTP client behind the hosted answering
// backends. Requests pass through a middleware chain:
//
//	logging → cache → circuit breaker → retry → rate limit → HTTP
//
// Caching keys on the canonical request, which includes the attempt feedback
// the orchestrator adds to the conversation, so a rejected answer is never
// replayed to a later attempt. Redis backs the shared cache and the global
// rate limit; when Redis is unavailable the limiter degrades to local buckets
// and the cache passes requests through.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ahrav/go-questionnaire/internal/llm/cache"
	"github.com/ahrav/go-questionnaire/internal/llm/circuitbreaker"
	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	"github.com/ahrav/go-questionnaire/internal/llm/providers"
	"github.com/ahrav/go-questionnaire/internal/llm/ratelimit"
	"github.com/ahrav/go-questionnaire/internal/llm/retry"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

// Connection pool settings for the default HTTP client.
const (
	defaultMaxIdleConns = 32
	defaultIdleTimeout  = 90 * time.Second
	defaultTLSTimeout   = 10 * time.Second
)

// Client runs normalized requests through the middleware chain.
type Client struct {
	config  *configuration.Config
	handler transport.Handler

	cache    *cache.Cache
	breakers *circuitbreaker.Breakers
	retrier  *retry.Retrier
	limiter  *ratelimit.Limiter

	redisClients []*redis.Client
}

// Stats is a snapshot of every middleware's counters. Fields for disabled
// middleware are zero.
type Stats struct {
	Cache          cache.Stats
	CircuitBreaker circuitbreaker.Stats
	Retry          retry.Stats
	RateLimit      ratelimit.Stats
}

// NewClient builds the full chain from cfg. A nil cfg uses DefaultConfig.
func NewClient(cfg *configuration.Config) (*Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ResolveAPIKeys()

	router, err := providers.NewRouter(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}
	return newClient(cfg, router)
}

func newClient(cfg *configuration.Config, router transport.Router) (*Client, error) {
	c := &Client{config: cfg}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          defaultMaxIdleConns,
				IdleConnTimeout:       defaultIdleTimeout,
				TLSHandshakeTimeout:   defaultTLSTimeout,
				ExpectContinueTimeout: time.Second,
			},
			Timeout: cfg.HTTPTimeout,
		}
	}
	core := transport.NewHTTPHandler(httpClient, router, nil)

	var counter ratelimit.WindowCounter
	if cfg.RateLimit.Global.Enabled {
		counter = ratelimit.NewRedisCounter(c.redisClient(cfg.RateLimit.Global.Redis, cfg.RateLimit.Global.ConnectTimeout))
	}
	limiter, err := ratelimit.New(cfg.RateLimit, counter)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}
	c.limiter = limiter

	retrier, err := retry.NewRetrier(cfg.Retry)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize retry middleware: %w", err)
	}
	c.retrier = retrier

	middlewares := []transport.Middleware{NewLoggingMiddleware(cfg.Observability, nil)}

	if cfg.Cache.Enabled {
		var store cache.Store
		switch cfg.Cache.Backend {
		case "redis":
			store = cache.NewRedisStore(c.redisClient(cfg.Cache.Redis, configuration.DefaultConnectTimeout))
		default:
			store = cache.NewMemoryStore()
		}
		c.cache = cache.New(store, cfg.Cache.TTL)
		middlewares = append(middlewares, c.cache.Middleware())
	}

	if cfg.CircuitBreaker.Enabled {
		c.breakers = circuitbreaker.New(cfg.CircuitBreaker)
		middlewares = append(middlewares, c.breakers.Middleware())
	}

	middlewares = append(middlewares, c.retrier.Middleware())
	if cfg.RateLimit.Local.Enabled || cfg.RateLimit.Global.Enabled {
		middlewares = append(middlewares, c.limiter.Middleware())
	}

	c.handler = transport.Chain(core, middlewares...)
	return c, nil
}

// redisClient opens a client for rc, reusing one already opened for the same
// address and database.
func (c *Client) redisClient(rc configuration.RedisConfig, dialTimeout time.Duration) *redis.Client {
	for _, existing := range c.redisClients {
		opts := existing.Options()
		if opts.Addr == rc.Addr && opts.DB == rc.DB {
			return existing
		}
	}
	if dialTimeout <= 0 {
		dialTimeout = configuration.DefaultConnectTimeout
	}
	client := redis.NewClient(&redis.Options{
		Addr:        rc.Addr,
		Password:    rc.Password,
		DB:          rc.DB,
		DialTimeout: dialTimeout,
	})
	c.redisClients = append(c.redisClients, client)
	return client
}

// Do sends req through the chain. It fills in the tenant, the per-provider
// timeout and the idempotency key when the caller left them empty.
func (c *Client) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if req.TenantID == "" {
		req.TenantID = c.config.TenantID
	}
	if req.Timeout == 0 {
		if pc, ok := c.config.Providers[req.Provider]; ok {
			req.Timeout = pc.Timeout
		}
	}
	if req.IdempotencyKey == "" {
		key, err := transport.GenerateIdemKey(req)
		if err != nil {
			return nil, fmt.Errorf("failed to generate idempotency key: %w", err)
		}
		req.IdempotencyKey = key.String()
	}
	return c.handler.Handle(ctx, req)
}

// Stats returns a snapshot of the middleware counters.
func (c *Client) Stats() Stats {
	var s Stats
	if c.cache != nil {
		s.Cache = c.cache.Stats()
	}
	if c.breakers != nil {
		s.CircuitBreaker = c.breakers.Stats()
	}
	if c.retrier != nil {
		s.Retry = c.retrier.Stats()
	}
	if c.limiter != nil {
		s.RateLimit = c.limiter.Stats()
	}
	return s
}

// Close releases Redis connections.
func (c *Client) Close() error {
	var errs []error
	for _, rc := range c.redisClients {
		errs = append(errs, rc.Close())
	}
	c.redisClients = nil
	return errors.Join(errs...)
}
