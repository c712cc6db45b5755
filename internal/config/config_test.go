package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-questionnaire/internal/backend"
	"github.com/ahrav/go-questionnaire/internal/domain"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questionnaire.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
backend:
  kind: llm
  llm:
    provider: anthropic
    model: claude-sonnet-4-5
    web_search: true
defaults:
  char_limit: 500
  max_retries: 5
llm:
  http_timeout: 45s
  providers:
    anthropic:
      api_key_env: MY_ANTHROPIC_KEY
  cache:
    enabled: true
    backend: memory
    ttl: 1h
checkers:
  links:
    enabled: true
    concurrency: 2
temporal:
  task_queue: answers
`)
	t.Setenv("MY_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, backend.KindLLM, cfg.Backend.Kind)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Backend.LLM.Model)
	assert.True(t, cfg.Backend.LLM.WebSearch)
	assert.Equal(t, 500, cfg.Defaults.CharLimit)
	assert.Equal(t, 45*time.Second, cfg.LLM.HTTPTimeout)
	assert.Equal(t, time.Hour, cfg.LLM.Cache.TTL)
	assert.Equal(t, "sk-ant-test", cfg.LLM.Providers["anthropic"].APIKey)
	assert.True(t, cfg.Checkers.Links.Enabled)
	assert.Equal(t, 2, cfg.Checkers.Links.Concurrency)
	assert.Equal(t, "answers", cfg.Temporal.TaskQueue)
	// Unset sections keep their defaults.
	assert.Equal(t, "localhost:7233", cfg.Temporal.HostPort)
	assert.Equal(t, 3, cfg.LLM.Retry.MaxAttempts)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "backend: [unclosed"},
		{name: "unknown backend", body: "backend:\n  kind: smoke-signals\n"},
		{name: "llm without model", body: "backend:\n  kind: llm\n  llm:\n    provider: openai\n"},
		{name: "zero char limit", body: "defaults:\n  char_limit: -1\n"},
		{name: "invalid llm retry", body: "llm:\n  retry:\n    max_attempts: 0\n"},
		{name: "bad log level", body: "logging:\n  level: chatty\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(envMap(map[string]string{
		"QUESTIONNAIRE_BACKEND":     "gemini",
		"QUESTIONNAIRE_CHAR_LIMIT":  "750",
		"QUESTIONNAIRE_MAX_RETRIES": "2",
		"QUESTIONNAIRE_LOG_FORMAT":  "json",
		"QUESTIONNAIRE_REDIS_ADDR":  "redis:6379",
		"QUESTIONNAIRE_TASK_QUEUE":  "q2",
	}))
	require.NoError(t, err)

	assert.Equal(t, backend.KindGemini, cfg.Backend.Kind)
	assert.Equal(t, 750, cfg.Defaults.CharLimit)
	assert.Equal(t, 2, cfg.Defaults.MaxRetries)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "redis:6379", cfg.LLM.Cache.Redis.Addr)
	assert.Equal(t, "redis:6379", cfg.LLM.RateLimit.Global.Redis.Addr)
	assert.Equal(t, "q2", cfg.Temporal.TaskQueue)
}

func TestApplyEnv_BadInteger(t *testing.T) {
	err := Default().ApplyEnv(envMap(map[string]string{"QUESTIONNAIRE_MAX_RETRIES": "many"}))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestAsk(t *testing.T) {
	cfg := Default()
	cfg.Defaults.CharLimit = 300

	got := cfg.Ask(domain.AskInput{Question: "q"})
	assert.Equal(t, 300, got.CharLimit)
	assert.Equal(t, domain.DefaultMaxRetries, got.MaxRetries)

	got = cfg.Ask(domain.AskInput{Question: "q", CharLimit: 10, MaxRetries: 1})
	assert.Equal(t, 10, got.CharLimit)
	assert.Equal(t, 1, got.MaxRetries)
}
