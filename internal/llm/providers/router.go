// Package providers adapts the normalized transport types to each hosted
// provider's HTTP API.
package providers

import (
	"fmt"
	"sort"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-questionnaire/internal/llm/errors"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

// Supported provider identifiers. They match configuration keys.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderOpenRouter = "openrouter"
)

// NewRouter builds one adapter per configured provider.
func NewRouter(configs map[string]configuration.ProviderConfig) (transport.Router, error) {
	adapters := make(map[string]transport.ProviderAdapter, len(configs))
	for name, cfg := range configs {
		switch name {
		case ProviderOpenAI:
			adapters[name] = NewOpenAIAdapter(cfg)
		case ProviderAnthropic:
			adapters[name] = NewAnthropicAdapter(cfg)
		case ProviderOpenRouter:
			adapters[name] = NewOpenRouterAdapter(cfg)
		default:
			return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, name)
		}
	}
	return &router{adapters: adapters}, nil
}

type router struct {
	adapters map[string]transport.ProviderAdapter
}

// Pick returns the adapter registered for provider.
func (r *router) Pick(provider, _ string) (transport.ProviderAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	return adapter, nil
}

// Supported lists the provider names NewRouter accepts.
func Supported() []string {
	names := []string{ProviderOpenAI, ProviderAnthropic, ProviderOpenRouter}
	sort.Strings(names)
	return names
}
