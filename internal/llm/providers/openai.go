package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ahrav/go-questionnaire/internal/llm/configuration"
	"github.com/ahrav/go-questionnaire/internal/llm/transport"
)

// OpenAIAdapter speaks the chat/completions API. It also serves any
// OpenAI-compatible endpoint such as OpenRouter.
type OpenAIAdapter struct {
	config configuration.ProviderConfig
	name   string
}

// NewOpenAIAdapter defaults the endpoint to OpenAI's production API.
func NewOpenAIAdapter(cfg configuration.ProviderConfig) *OpenAIAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1"
	}
	return &OpenAIAdapter{config: cfg, name: ProviderOpenAI}
}

// NewOpenRouterAdapter targets OpenRouter's OpenAI-compatible API.
func NewOpenRouterAdapter(cfg configuration.ProviderConfig) *OpenAIAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://openrouter.ai/api/v1"
	}
	return &OpenAIAdapter{config: cfg, name: ProviderOpenRouter}
}

// Name returns the provider name.
func (a *OpenAIAdapter) Name() string { return a.name }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model            string          `json:"model"`
	Messages         []openAIMessage `json:"messages"`
	MaxTokens        int64           `json:"max_tokens,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	Seed             *int64          `json:"seed,omitempty"`
	WebSearchOptions *struct{}       `json:"web_search_options,omitempty"`
}

// Build constructs a chat/completions request. Web search requests ask for
// web_search_options and leave temperature unset, which search models reject.
func (a *OpenAIAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	switch req.Operation {
	case transport.OpAnswer, transport.OpCheck:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, req.Operation)
	}

	body := openAIRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
		Seed:      req.Seed,
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	if req.WebSearch {
		body.WebSearchOptions = &struct{}{}
	} else {
		temp := req.Temperature
		body.Temperature = &temp
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role        string `json:"role"`
			Content     string `json:"content"`
			Annotations []struct {
				Type        string `json:"type"`
				URLCitation struct {
					URL        string `json:"url"`
					Title      string `json:"title"`
					StartIndex int    `json:"start_index"`
					EndIndex   int    `json:"end_index"`
				} `json:"url_citation"`
			} `json:"annotations"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Parse extracts content, url_citation annotations and usage.
func (a *OpenAIAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, providerError(a.name, httpResp, body, decodeJSONError)
	}

	var resp openAIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := &transport.Response{
		FinishReason: transport.FinishUnknown,
		Usage: transport.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Headers: httpResp.Header,
		RawBody: body,
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Content = choice.Message.Content
		out.FinishReason = mapOpenAIFinishReason(choice.FinishReason)
		for _, ann := range choice.Message.Annotations {
			if ann.Type == "url_citation" && ann.URLCitation.URL != "" {
				out.Citations = append(out.Citations, ann.URLCitation.URL)
			}
		}
	}
	if id := httpResp.Header.Get("x-request-id"); id != "" {
		out.ProviderRequestIDs = append(out.ProviderRequestIDs, id)
	} else if resp.ID != "" {
		out.ProviderRequestIDs = append(out.ProviderRequestIDs, resp.ID)
	}
	return out, nil
}

func mapOpenAIFinishReason(reason string) transport.FinishReason {
	switch reason {
	case "stop":
		return transport.FinishStop
	case "length":
		return transport.FinishLength
	case "content_filter":
		return transport.FinishContentFilter
	case "tool_calls", "function_call":
		return transport.FinishToolUse
	default:
		return transport.FinishUnknown
	}
}
