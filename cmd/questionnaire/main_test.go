package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

type run struct {
	stdout, stderr bytes.Buffer
	err            error
}

func execute(t *testing.T, args ...string) *run {
	t.Helper()
	r := &run{}
	a := &app{stdout: &r.stdout, stderr: &r.stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	r.err = root.ExecuteContext(context.Background())
	return r
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const offlineConfig = `
backend:
  kind: offline
  offline:
    template: "{question} Yes, {context} supports it. See https://learn.microsoft.com/azure/functions."
    inject_citations: true
logging:
  level: error
`

func TestAsk(t *testing.T) {
	cfg := writeConfig(t, offlineConfig)
	r := execute(t, "ask", "Does it scale?", "--context", "Azure Functions", "--config", cfg)

	require.NoError(t, r.err, r.stderr.String())
	out := r.stdout.String()
	assert.Contains(t, out, "FINAL ANSWER:")
	assert.Contains(t, out, "Azure Functions supports it")
	assert.NotContains(t, out, "【")
	assert.Contains(t, out, "Documentation links:\n  1. https://learn.microsoft.com/azure/functions")
	assert.NotContains(t, out, "Reasoning:")
}

func TestAsk_Verbose(t *testing.T) {
	cfg := writeConfig(t, offlineConfig)
	r := execute(t, "ask", "Does it scale?", "-v", "--config", cfg)

	require.NoError(t, r.err)
	assert.Contains(t, r.stdout.String(), "Reasoning:\n  Question: Does it scale?")
}

func TestAsk_ExhaustedExitsWithError(t *testing.T) {
	cfg := writeConfig(t, `
backend:
  offline:
    fail_attempts: [1, 2]
logging:
  level: error
`)
	r := execute(t, "ask", "Does it scale?", "--max-retries", "2", "--config", cfg)

	require.ErrorIs(t, r.err, errNotAnswered)
	assert.Contains(t, r.stderr.String(), "ERROR:")
	assert.Contains(t, r.stderr.String(), "after 2 attempt(s)")
	assert.NotContains(t, r.stdout.String(), "FINAL ANSWER:")
}

func TestAsk_AnswerCheckerNeedsCompleter(t *testing.T) {
	cfg := writeConfig(t, `
checkers:
  answer:
    enabled: true
logging:
  level: error
`)
	r := execute(t, "ask", "Does it scale?", "--config", cfg)
	assert.ErrorContains(t, r.err, "answer checker")
}

func TestAsk_RequiresQuestion(t *testing.T) {
	r := execute(t, "ask")
	assert.Error(t, r.err)
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.yaml")
	require.NoError(t, os.WriteFile(in, []byte(`
name: review
context: Azure
questions:
  - question: Is data encrypted?
  - id: sla
    question: Is there an SLA?
`), 0o600))
	out := filepath.Join(dir, "out.yaml")

	r := execute(t, "batch", in, "-o", out, "--config", writeConfig(t, offlineConfig))
	require.NoError(t, r.err, r.stderr.String())
	assert.Contains(t, r.stdout.String(), "2/2 answered")

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var report domain.Report
	require.NoError(t, yaml.Unmarshal(raw, &report))
	require.Len(t, report.Items, 2)
	assert.Equal(t, "q1", report.Items[0].ID)
	assert.Equal(t, "sla", report.Items[1].ID)
	assert.True(t, report.Items[1].Success)
}

func TestBatch_Stdout(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.yaml")
	require.NoError(t, os.WriteFile(in, []byte("questions:\n  - question: Is it fast?\n"), 0o600))

	r := execute(t, "batch", in, "--config", writeConfig(t, offlineConfig))
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout.String(), "success: true")
}

func TestBadConfig(t *testing.T) {
	r := execute(t, "ask", "q", "--config", writeConfig(t, "backend:\n  kind: carrier-pigeon\n"))
	assert.Error(t, r.err)
}
