// Package transport defines the provider-neutral request and response types of
// the hosted-model pipeline and the Handler/Middleware chain that carries them.
package transport

import (
	"net/http"
	"time"
)

// OperationType separates answering calls from checker calls so they get
// distinct cache namespaces, rate limit keys and log labels.
type OperationType string

const (
	// OpAnswer asks the model to answer a questionnaire question.
	OpAnswer OperationType = "answer"

	// OpCheck asks the model to judge a candidate answer.
	OpCheck OperationType = "check"
)

// Role is a chat message author.
type Role string

// Chat roles understood by every provider adapter.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a normalized call to any provider.
type Request struct {
	Operation OperationType `json:"operation"`
	Provider  string        `json:"provider"` // "openai" | "anthropic"
	Model     string        `json:"model"`
	TenantID  string        `json:"tenant_id"`

	// SystemPrompt carries the answering rules. Adapters place it wherever
	// the provider expects it.
	SystemPrompt string    `json:"system_prompt,omitempty"`
	Messages     []Message `json:"messages"`

	MaxTokens   int64   `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Seed        *int64  `json:"seed,omitempty"`

	// WebSearch asks providers that support it to ground the answer in web
	// search results and report the sources.
	WebSearch bool `json:"web_search,omitempty"`

	Timeout        time.Duration     `json:"timeout"`
	IdempotencyKey string            `json:"idempotency_key"`
	TraceID        string            `json:"trace_id"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// FinishReason records why the model stopped generating.
type FinishReason string

// Normalized finish reasons.
const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishToolUse       FinishReason = "tool_use"
	FinishUnknown       FinishReason = "unknown"
)

// Response is the normalized output of any provider.
type Response struct {
	Content      string       `json:"content"`
	FinishReason FinishReason `json:"finish_reason"`

	// Citations are source URLs the provider attached out-of-band, such as
	// url_citation annotations.
	Citations []string `json:"citations,omitempty"`

	ProviderRequestIDs []string `json:"provider_request_ids"`
	Usage              Usage    `json:"usage"`

	// Cached is set when the response was served from the response cache.
	Cached bool `json:"-"`

	Headers http.Header `json:"-"`
	RawBody []byte      `json:"-"`
}

// Usage is provider-neutral token accounting.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}

// LastUserMessage returns the content of the final user turn, or "".
func (r *Request) LastUserMessage() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == RoleUser {
			return r.Messages[i].Content
		}
	}
	return ""
}
