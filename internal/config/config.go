// Package config loads the application configuration from a YAML file with
// QUESTIONNAIRE_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-questionnaire/internal/backend"
	"github.com/ahrav/go-questionnaire/internal/checker"
	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	"github.com/ahrav/go-questionnaire/internal/logging"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "QUESTIONNAIRE_"

// Config is the root configuration.
type Config struct {
	Backend  backend.Config       `yaml:"backend"`
	Defaults Defaults             `yaml:"defaults"`
	Logging  logging.Config       `yaml:"logging"`
	LLM      configuration.Config `yaml:"llm" validate:"-"`
	Checkers Checkers             `yaml:"checkers"`
	Batch    Batch                `yaml:"batch"`
	Temporal Temporal             `yaml:"temporal"`
}

// Defaults apply to ask requests that leave a field unset.
type Defaults struct {
	CharLimit  int `yaml:"char_limit" validate:"gt=0"`
	MaxRetries int `yaml:"max_retries" validate:"gte=1"`
}

// Checkers configures the optional acceptance checks.
type Checkers struct {
	Links  checker.LinkConfig   `yaml:"links"`
	Answer checker.AnswerConfig `yaml:"answer"`
}

// Batch tunes the questionnaire runner.
type Batch struct {
	Concurrency int `yaml:"concurrency" validate:"gte=1"`
}

// Temporal locates the Temporal frontend.
type Temporal struct {
	HostPort  string        `yaml:"host_port" validate:"required"`
	Namespace string        `yaml:"namespace" validate:"required"`
	TaskQueue string        `yaml:"task_queue" validate:"required"`
	Timeout   time.Duration `yaml:"activity_timeout" validate:"gte=0"`
}

// Default returns the built-in configuration: the offline backend, info
// logging and a local Temporal server.
func Default() *Config {
	return &Config{
		Backend: backend.Config{Kind: backend.KindOffline},
		Defaults: Defaults{
			CharLimit:  domain.DefaultCharLimit,
			MaxRetries: domain.DefaultMaxRetries,
		},
		Logging: logging.Config{Level: "info", Format: "text"},
		LLM:     *configuration.DefaultConfig(),
		Checkers: Checkers{
			Links: checker.LinkConfig{
				Timeout:           checker.DefaultLinkTimeout,
				Concurrency:       checker.DefaultLinkConcurrency,
				RequestsPerSecond: checker.DefaultLinkRate,
			},
		},
		Batch: Batch{Concurrency: 4},
		Temporal: Temporal{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "questionnaire",
			Timeout:   5 * time.Minute,
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.LLM.ResolveAPIKeys()
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, EnvPrefix, name, v)
		}
		*dst = n
		return nil
	}

	str("BACKEND", &c.Backend.Kind)
	str("PROVIDER", &c.Backend.LLM.Provider)
	str("MODEL", &c.Backend.LLM.Model)
	str("GEMINI_MODEL", &c.Backend.Gemini.Model)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)
	str("TEMPORAL_HOST_PORT", &c.Temporal.HostPort)
	str("TEMPORAL_NAMESPACE", &c.Temporal.Namespace)
	str("TASK_QUEUE", &c.Temporal.TaskQueue)

	if v, ok := lookup(EnvPrefix + "REDIS_ADDR"); ok && v != "" {
		c.LLM.Cache.Redis.Addr = v
		c.LLM.RateLimit.Global.Redis.Addr = v
	}

	for name, dst := range map[string]*int{
		"CHAR_LIMIT":        &c.Defaults.CharLimit,
		"MAX_RETRIES":       &c.Defaults.MaxRetries,
		"BATCH_CONCURRENCY": &c.Batch.Concurrency,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every section, including the LLM pipeline settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			parts := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(parts, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Backend.Kind == backend.KindLLM && (c.Backend.LLM.Provider == "" || c.Backend.LLM.Model == "") {
		return fmt.Errorf("%w: llm backend requires backend.llm.provider and backend.llm.model", ErrInvalid)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// Ask fills unset fields of in from the defaults.
func (c *Config) Ask(in domain.AskInput) domain.AskInput {
	if in.CharLimit == 0 {
		in.CharLimit = c.Defaults.CharLimit
	}
	if in.MaxRetries == 0 {
		in.MaxRetries = c.Defaults.MaxRetries
	}
	return in
}
