package orchestrator

import (
	"bytes"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranscript(t *testing.T) {
	tr := &Transcript{}
	tr.Record("one")
	tr.Record("two")

	lines := tr.Lines()
	assert.Equal(t, []string{"one", "two"}, lines)
	lines[0] = "mutated"
	assert.Equal(t, "one\ntwo", tr.String())

	tr.Reset()
	assert.Empty(t, tr.Lines())
}

func TestTranscript_ConcurrentRecord(t *testing.T) {
	tr := &Transcript{}
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record(strconv.Itoa(i))
		}()
	}
	wg.Wait()
	assert.Len(t, tr.Lines(), 50)
}

func TestSlogRecorder(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	NewSlogRecorder(logger, slog.LevelDebug).Record("Attempt 1/3")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, `msg="Attempt 1/3"`)
	assert.Contains(t, out, "component=reasoning")
}

func TestSlogRecorder_NilLoggerUsesDefault(t *testing.T) {
	assert.NotPanics(t, func() {
		NewSlogRecorder(nil, slog.LevelInfo).Record("hello")
	})
}

func TestMultiRecorder(t *testing.T) {
	a, b := &Transcript{}, &Transcript{}
	var got []string
	m := MultiRecorder{a, nil, b, RecorderFunc(func(msg string) { got = append(got, msg) })}

	m.Record("x")
	NopRecorder{}.Record("ignored")

	assert.Equal(t, []string{"x"}, a.Lines())
	assert.Equal(t, []string{"x"}, b.Lines())
	assert.Equal(t, []string{"x"}, got)
}
