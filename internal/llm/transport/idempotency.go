package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CurrentCanonicalVersion is mixed into every key. Bump it whenever
// canonicalization changes so stale cache entries stop matching.
const CurrentCanonicalVersion = "v2"

// Canonical payload validation errors.
var (
	ErrOperationRequired = errors.New("operation is required")
	ErrProviderRequired  = errors.New("provider is required")
	ErrModelRequired     = errors.New("model is required")
	ErrMessagesRequired  = errors.New("at least one message is required")
)

// CanonicalPayload is the normalized form of a request and the sole input to
// key hashing. Requests that differ only in whitespace, provider casing or
// map ordering produce the same payload.
type CanonicalPayload struct {
	TenantID  string             `json:"tenant_id,omitempty"`
	Operation OperationType      `json:"operation"`
	Provider  string             `json:"provider"`
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []CanonicalMessage `json:"messages"`
	Params    map[string]any     `json:"params,omitempty"`
	Version   string             `json:"version"`
}

// CanonicalMessage is a normalized chat turn.
type CanonicalMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IdemKey is the hex SHA-256 of a canonical payload.
type IdemKey string

// String returns the key as a string.
func (k IdemKey) String() string { return string(k) }

// BuildCanonicalPayload normalizes req.
func BuildCanonicalPayload(req *Request) (*CanonicalPayload, error) {
	payload := &CanonicalPayload{
		TenantID:  req.TenantID,
		Operation: req.Operation,
		Provider:  strings.ToLower(strings.TrimSpace(req.Provider)),
		Model:     strings.TrimSpace(req.Model),
		System:    normalizeText(req.SystemPrompt),
		Version:   CurrentCanonicalVersion,
	}
	switch {
	case payload.Operation == "":
		return nil, ErrOperationRequired
	case payload.Provider == "":
		return nil, ErrProviderRequired
	case payload.Model == "":
		return nil, ErrModelRequired
	case len(req.Messages) == 0:
		return nil, ErrMessagesRequired
	}

	payload.Messages = make([]CanonicalMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, CanonicalMessage{Role: m.Role, Content: normalizeText(m.Content)})
	}

	params := map[string]any{}
	if req.MaxTokens > 0 {
		params["max_tokens"] = req.MaxTokens
	}
	if req.Temperature != 0 {
		params["temperature"] = req.Temperature
	}
	if req.Seed != nil {
		params["seed"] = *req.Seed
	}
	if req.WebSearch {
		params["web_search"] = true
	}
	if len(params) > 0 {
		payload.Params = params
	}
	return payload, nil
}

// BuildIdemKey hashes payload. encoding/json sorts map keys, so equal
// payloads always hash equally.
func BuildIdemKey(payload *CanonicalPayload) (IdemKey, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal canonical payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return IdemKey(hex.EncodeToString(sum[:])), nil
}

// GenerateIdemKey canonicalizes req and hashes it.
func GenerateIdemKey(req *Request) (IdemKey, error) {
	payload, err := BuildCanonicalPayload(req)
	if err != nil {
		return "", fmt.Errorf("failed to build canonical payload: %w", err)
	}
	return BuildIdemKey(payload)
}

// CacheKey builds the storage key llm:{tenant}:{operation}:{idemkey}.
func CacheKey(tenantID string, operation OperationType, key IdemKey) string {
	if tenantID == "" {
		tenantID = "default"
	}
	return fmt.Sprintf("llm:%s:%s:%s", tenantID, operation, key)
}

// normalizeText trims, converts CRLF to LF and collapses runs of whitespace.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Join(strings.Fields(text), " ")
}
