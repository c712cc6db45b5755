package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseRequest() *Request {
	return &Request{
		Operation:    OpAnswer,
		Provider:     "openai",
		Model:        "gpt-4o",
		SystemPrompt: "Answer in the third person.",
		Messages:     []Message{{Role: RoleUser, Content: "What is the capital of France?"}},
		MaxTokens:    512,
	}
}

func TestGenerateIdemKey_Stable(t *testing.T) {
	a, err := GenerateIdemKey(baseRequest())
	require.NoError(t, err)
	b, err := GenerateIdemKey(baseRequest())
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.String(), 64)
}

func TestGenerateIdemKey_Normalization(t *testing.T) {
	a, err := GenerateIdemKey(baseRequest())
	require.NoError(t, err)

	req := baseRequest()
	req.Provider = "  OpenAI "
	req.SystemPrompt = "Answer  in the\r\nthird person.  "
	req.Messages[0].Content = "\tWhat is the   capital of France?\n"
	req.TraceID = "trace-differs"
	b, err := GenerateIdemKey(req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerateIdemKey_Distinguishes(t *testing.T) {
	base, err := GenerateIdemKey(baseRequest())
	require.NoError(t, err)

	mutations := map[string]func(*Request){
		"operation":   func(r *Request) { r.Operation = OpCheck },
		"model":       func(r *Request) { r.Model = "gpt-4o-mini" },
		"message":     func(r *Request) { r.Messages[0].Content = "What is the capital of Spain?" },
		"feedback":    func(r *Request) { r.Messages = append(r.Messages, Message{Role: RoleUser, Content: "Attempt 1 was too long."}) },
		"temperature": func(r *Request) { r.Temperature = 0.3 },
		"web_search":  func(r *Request) { r.WebSearch = true },
		"seed":        func(r *Request) { s := int64(7); r.Seed = &s },
		"tenant":      func(r *Request) { r.TenantID = "acme" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			req := baseRequest()
			mutate(req)
			key, err := GenerateIdemKey(req)
			require.NoError(t, err)
			assert.NotEqual(t, base, key)
		})
	}
}

func TestBuildCanonicalPayload_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"operation", func(r *Request) { r.Operation = "" }, ErrOperationRequired},
		{"provider", func(r *Request) { r.Provider = " " }, ErrProviderRequired},
		{"model", func(r *Request) { r.Model = "" }, ErrModelRequired},
		{"messages", func(r *Request) { r.Messages = nil }, ErrMessagesRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(req)
			_, err := BuildCanonicalPayload(req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "llm:acme:answer:abc", CacheKey("acme", OpAnswer, "abc"))
	assert.Equal(t, "llm:default:check:abc", CacheKey("", OpCheck, "abc"))
}
