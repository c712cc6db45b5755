package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

const (
	anthropicVersion    = "2023-06-01"
	anthropicWebSearch  = "web_search_20250305"
	anthropicSearchUses = 5
	anthropicDefaultMax = 1024
)

// AnthropicAdapter speaks the Messages API.
type AnthropicAdapter struct {
	config configuration.ProviderConfig
}

// NewAnthropicAdapter defaults the endpoint to Anthropic's production API.
func NewAnthropicAdapter(cfg configuration.ProviderConfig) *AnthropicAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.anthropic.com/v1"
	}
	return &AnthropicAdapter{config: cfg}
}

// Name returns the provider name.
func (a *AnthropicAdapter) Name() string { return ProviderAnthropic }

type anthropicTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

type anthropicRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int64           `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Tools       []anthropicTool `json:"tools,omitempty"`
}

// Build constructs a Messages request. The system prompt goes in its own
// field and web search is requested through the server-side search tool.
func (a *AnthropicAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	switch req.Operation {
	case transport.OpAnswer, transport.OpCheck:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}

	body := anthropicRequest{
		Model:       req.Model,
		System:      req.SystemPrompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = anthropicDefaultMax
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.WebSearch {
		body.Tools = []anthropicTool{{Type: anthropicWebSearch, Name: "web_search", MaxUses: anthropicSearchUses}}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.config.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

type anthropicResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type      string `json:"type"`
		Text      string `json:"text"`
		Citations []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"citations"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// Parse joins every text block and collects the URLs of their citations.
// Search tool blocks carry no prose and are skipped.
func (a *AnthropicAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, providerError(ProviderAnthropic, httpResp, body, decodeJSONError)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	var citations []string
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		text.WriteString(block.Text)
		for _, c := range block.Citations {
			if c.URL != "" {
				citations = append(citations, c.URL)
			}
		}
	}

	out := &transport.Response{
		Content:      text.String(),
		FinishReason: mapAnthropicStopReason(resp.StopReason),
		Citations:    citations,
		Usage: transport.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Headers: httpResp.Header,
		RawBody: body,
	}
	if id := httpResp.Header.Get("request-id"); id != "" {
		out.ProviderRequestIDs = []string{id}
	} else if resp.ID != "" {
		out.ProviderRequestIDs = []string{resp.ID}
	}
	return out, nil
}

func mapAnthropicStopReason(reason string) transport.FinishReason {
	switch reason {
	case "end_turn", "stop_sequence":
		return transport.FinishStop
	case "max_tokens":
		return transport.FinishLength
	case "refusal":
		return transport.FinishContentFilter
	case "tool_use", "pause_turn":
		return transport.FinishToolUse
	default:
		return transport.FinishUnknown
	}
}
