package backend

import (
	"context"
	"fmt"
	"io"

	"github.com/ahrav/go-questionnaire/internal/domain"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

// Doer sends a normalized request through the hosted-model pipeline.
// *llm.Client implements it.
type Doer interface {
	Do(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// LLMConfig selects the hosted model.
type LLMConfig struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	MaxTokens   int64   `yaml:"max_tokens" json:"max_tokens" validate:"gte=0"`
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"gte=0,lte=2"`
	WebSearch   bool    `yaml:"web_search" json:"web_search"`
}

// LLM answers through an OpenAI, Anthropic or OpenRouter chat model.
// Provider-reported citations become out-of-band sources.
type LLM struct {
	client Doer
	cfg    LLMConfig
}

// NewLLM returns an LLM backend sending requests through client.
func NewLLM(client Doer, cfg LLMConfig) *LLM {
	return &LLM{client: client, cfg: cfg}
}

// Answer implements Backend.
func (l *LLM) Answer(ctx context.Context, q domain.Query) (domain.RawAnswer, error) {
	resp, err := l.client.Do(ctx, l.request(transport.OpAnswer, SystemPrompt(q.CharLimit), UserPrompt(q)))
	if err != nil {
		return domain.RawAnswer{}, fmt.Errorf("%s/%s: %w", l.cfg.Provider, l.cfg.Model, err)
	}
	return domain.RawAnswer{Text: resp.Content, Sources: resp.Citations}, nil
}

// Complete sends a single-turn checker prompt and returns the text.
func (l *LLM) Complete(ctx context.Context, prompt string) (string, error) {
	req := l.request(transport.OpCheck, "", prompt)
	req.WebSearch = false
	req.Temperature = 0
	resp, err := l.client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (l *LLM) request(op transport.OperationType, system, user string) *transport.Request {
	return &transport.Request{
		Operation:    op,
		Provider:     l.cfg.Provider,
		Model:        l.cfg.Model,
		SystemPrompt: system,
		Messages:     []transport.Message{{Role: transport.RoleUser, Content: user}},
		MaxTokens:    l.cfg.MaxTokens,
		Temperature:  l.cfg.Temperature,
		WebSearch:    l.cfg.WebSearch,
	}
}

// Close releases the client when it holds resources.
func (l *LLM) Close() error {
	if c, ok := l.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
