package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ahrav/go-questionnaire/internal/llm"
	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
)

// Backend kinds accepted by New.
const (
	KindOffline = "offline"
	KindLLM     = "llm"
	KindGemini  = "gemini"
)

// ErrUnknownKind is returned by New for an unrecognized backend kind.
var ErrUnknownKind = errors.New("unknown backend kind")

// Config selects and configures one backend.
type Config struct {
	Kind    string        `yaml:"kind" json:"kind" validate:"omitempty,oneof=offline llm gemini"`
	Offline OfflineConfig `yaml:"offline" json:"offline"`
	LLM     LLMConfig     `yaml:"llm" json:"llm"`
	Gemini  GeminiConfig  `yaml:"gemini" json:"gemini"`
}

// Completer sends a single prompt and returns the model's text. The LLM and
// Gemini backends implement it; the answer checker uses it.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the backend named by cfg.Kind. An empty kind selects Offline.
// llmCfg configures the HTTP pipeline for the llm kind and is ignored
// otherwise. Close the result with Close when done.
func New(ctx context.Context, cfg Config, llmCfg *configuration.Config) (Backend, error) {
	switch cfg.Kind {
	case "", KindOffline:
		return NewOffline(cfg.Offline), nil
	case KindLLM:
		if cfg.LLM.Provider == "" || cfg.LLM.Model == "" {
			return nil, errors.New("llm backend requires a provider and a model")
		}
		client, err := llm.NewClient(withProvider(llmCfg, cfg.LLM.Provider))
		if err != nil {
			return nil, err
		}
		return NewLLM(client, cfg.LLM), nil
	case KindGemini:
		return DialGemini(ctx, cfg.Gemini)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// withProvider returns a copy of cfg that registers provider, so a backend
// naming a provider without explicit settings still resolves its API key
// from the environment.
func withProvider(cfg *configuration.Config, provider string) *configuration.Config {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	out := *cfg
	out.Providers = make(map[string]configuration.ProviderConfig, len(cfg.Providers)+1)
	for k, v := range cfg.Providers {
		out.Providers[k] = v
	}
	if _, ok := out.Providers[provider]; !ok {
		out.Providers[provider] = configuration.ProviderConfig{}
	}
	return &out
}

// Close releases b's resources if it holds any.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
