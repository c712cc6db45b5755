// Package configuration holds the settings of the hosted-model client: providers,
// retry policy, circuit breaking, rate limiting, caching and observability.
package configuration

import (
	"net/http"
	"time"
)

// Config holds configuration for the hosted-model client.
type Config struct {
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout" validate:"gte=0"`
	HTTPClient  *http.Client  `yaml:"-" json:"-"`

	// TenantID namespaces cache and rate limit keys when several deployments
	// share one Redis.
	TenantID string `yaml:"tenant_id" json:"tenant_id"`

	Providers map[string]ProviderConfig `yaml:"providers" json:"providers" validate:"dive"`

	Retry          RetryConfig          `yaml:"retry" json:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit" json:"rate_limit"`
	Cache          CacheConfig          `yaml:"cache" json:"cache"`
	Observability  ObservabilityConfig  `yaml:"observability" json:"observability"`
}

// ProviderConfig holds endpoint and credentials for one provider.
type ProviderConfig struct {
	Endpoint  string            `yaml:"endpoint" json:"endpoint" validate:"omitempty,url"`
	APIKey    string            `yaml:"api_key" json:"-"` // Sensitive, not serialized
	APIKeyEnv string            `yaml:"api_key_env" json:"api_key_env"`
	Timeout   time.Duration     `yaml:"timeout" json:"timeout" validate:"gte=0"`
	Headers   map[string]string `yaml:"headers" json:"headers"`
}

// RetryConfig controls transport-level retries of a single provider call.
// These retries sit below the answer attempts: a call that keeps failing here
// surfaces as one backend failure to the orchestrator.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" json:"max_attempts" validate:"gte=1"`
	MaxElapsedTime  time.Duration `yaml:"max_elapsed_time" json:"max_elapsed_time" validate:"gte=0"`
	InitialInterval time.Duration `yaml:"initial_interval" json:"initial_interval" validate:"gt=0"`
	MaxInterval     time.Duration `yaml:"max_interval" json:"max_interval" validate:"gtefield=InitialInterval"`
	Multiplier      float64       `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
	UseJitter       bool          `yaml:"use_jitter" json:"use_jitter"`
}

// CircuitBreakerConfig controls per provider/model circuit breaking.
type CircuitBreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold" validate:"gte=1"`
	SuccessThreshold int           `yaml:"success_threshold" json:"success_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout" json:"open_timeout" validate:"gt=0"`
	HalfOpenProbes   int           `yaml:"half_open_probes" json:"half_open_probes" validate:"gte=1"`
}

// RateLimitConfig combines a local token bucket with an optional Redis
// fixed-window limit shared by every process.
type RateLimitConfig struct {
	Local  LocalRateLimitConfig  `yaml:"local" json:"local"`
	Global GlobalRateLimitConfig `yaml:"global" json:"global"`
}

// LocalRateLimitConfig for in-memory token buckets.
type LocalRateLimitConfig struct {
	Enabled         bool    `yaml:"enabled" json:"enabled"`
	TokensPerSecond float64 `yaml:"tokens_per_second" json:"tokens_per_second" validate:"gte=0"`
	BurstSize       int     `yaml:"burst_size" json:"burst_size" validate:"gte=0"`
}

// GlobalRateLimitConfig for the Redis fixed window.
type GlobalRateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int           `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	Redis             RedisConfig   `yaml:"redis" json:"redis"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" json:"connect_timeout" validate:"gte=0"`
}

// CacheConfig controls response caching.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	TTL     time.Duration `yaml:"ttl" json:"ttl" validate:"gte=0"`
	// Backend is "redis" or "memory".
	Backend string      `yaml:"backend" json:"backend" validate:"omitempty,oneof=redis memory"`
	Redis   RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig locates a Redis server.
type RedisConfig struct {
	Addr     string `yaml:"addr" json:"addr"`
	Password string `yaml:"password" json:"-"` // Sensitive
	DB       int    `yaml:"db" json:"db" validate:"gte=0"`
}

// ObservabilityConfig controls request logging.
type ObservabilityConfig struct {
	LogRequests   bool `yaml:"log_requests" json:"log_requests"`
	RedactPrompts bool `yaml:"redact_prompts" json:"redact_prompts"`
}
