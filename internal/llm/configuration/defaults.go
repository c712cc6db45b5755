package configuration

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTP and connection constants.
const (
	DefaultHTTPTimeout    = 60 * time.Second
	DefaultConnectTimeout = 5 * time.Second
)

// Retry and circuit breaker constants.
const (
	DefaultMaxAttempts       = 3
	DefaultMaxElapsedTime    = 90 * time.Second
	DefaultInitialInterval   = 500 * time.Millisecond
	DefaultMaxInterval       = 8 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultFailureThreshold  = 5
	DefaultSuccessThreshold  = 2
	DefaultOpenTimeout       = 30 * time.Second
)

// Rate limiting and cache constants.
const (
	DefaultTokensPerSecond = 2
	DefaultBurstSize       = 4
	DefaultCacheTTL        = 24 * time.Hour
)

// DefaultConfig returns settings suitable for interactive use against a
// single provider. Caching and the global limiter are off until a Redis
// address is configured.
func DefaultConfig() *Config {
	return &Config{
		HTTPTimeout: DefaultHTTPTimeout,
		Providers:   map[string]ProviderConfig{},
		Retry: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			MaxElapsedTime:  DefaultMaxElapsedTime,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultBackoffMultiplier,
			UseJitter:       true,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: DefaultFailureThreshold,
			SuccessThreshold: DefaultSuccessThreshold,
			OpenTimeout:      DefaultOpenTimeout,
			HalfOpenProbes:   1,
		},
		RateLimit: RateLimitConfig{
			Local: LocalRateLimitConfig{
				Enabled:         true,
				TokensPerSecond: DefaultTokensPerSecond,
				BurstSize:       DefaultBurstSize,
			},
			Global: GlobalRateLimitConfig{
				RequestsPerSecond: DefaultTokensPerSecond,
				ConnectTimeout:    DefaultConnectTimeout,
			},
		},
		Cache: CacheConfig{
			TTL:     DefaultCacheTTL,
			Backend: "memory",
		},
		Observability: ObservabilityConfig{
			LogRequests:   true,
			RedactPrompts: true,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid llm configuration")

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(parts, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.RateLimit.Local.Enabled && c.RateLimit.Local.TokensPerSecond == 0 && c.RateLimit.Local.BurstSize > 0 {
		return fmt.Errorf("%w: burst_size must be 0 when tokens_per_second is 0", ErrInvalidConfig)
	}
	if c.RateLimit.Global.Enabled && c.RateLimit.Global.Redis.Addr == "" {
		return fmt.Errorf("%w: global rate limit requires a redis address", ErrInvalidConfig)
	}
	if c.Cache.Enabled && c.Cache.Backend == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("%w: redis cache requires a redis address", ErrInvalidConfig)
	}
	return nil
}

// ResolveAPIKeys fills empty API keys from the environment variable named by
// APIKeyEnv, falling back to {PROVIDER}_API_KEY.
func (c *Config) ResolveAPIKeys() {
	for name, p := range c.Providers {
		if p.APIKey != "" {
			continue
		}
		env := p.APIKeyEnv
		if env == "" {
			env = strings.ToUpper(name) + "_API_KEY"
		}
		p.APIKey = os.Getenv(env)
		c.Providers[name] = p
	}
}
