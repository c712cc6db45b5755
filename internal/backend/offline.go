package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ahrav/go-questionnaire/internal/domain"
)

// ErrScriptedFailure is returned by Offline on attempts configured to fail.
var ErrScriptedFailure = errors.New("scripted offline failure")

const defaultOfflineTemplate = "{question} The answer draws on {context} documentation at https://learn.example.com/docs and covers the key points in detail."

// OfflineConfig drives the deterministic backend.
type OfflineConfig struct {
	// Template is the answer text. {question} and {context} are substituted.
	Template string `yaml:"template" json:"template"`

	// InjectCitations decorates the answer with citation markers the
	// sanitizer must strip.
	InjectCitations bool `yaml:"inject_citations" json:"inject_citations"`

	// FailAttempts lists 1-based attempt numbers that return an error.
	FailAttempts []int `yaml:"fail_attempts" json:"fail_attempts"`

	// Sources are reported as out-of-band grounding URLs.
	Sources []string `yaml:"sources" json:"sources"`
}

// Offline answers from a template without any network access. It shortens
// its answer to the character limit once a previous attempt was rejected as
// too long, so it exercises the full retry loop deterministically.
type Offline struct {
	cfg OfflineConfig
}

// NewOffline returns an Offline backend.
func NewOffline(cfg OfflineConfig) *Offline {
	if cfg.Template == "" {
		cfg.Template = defaultOfflineTemplate
	}
	return &Offline{cfg: cfg}
}

// Answer implements Backend.
func (o *Offline) Answer(ctx context.Context, q domain.Query) (domain.RawAnswer, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawAnswer{}, err
	}
	if slices.Contains(o.cfg.FailAttempts, q.Attempt) {
		return domain.RawAnswer{}, fmt.Errorf("%w on attempt %d", ErrScriptedFailure, q.Attempt)
	}

	topic := strings.TrimSpace(q.Context)
	if topic == "" {
		topic = "product"
	}
	text := strings.NewReplacer(
		"{question}", strings.TrimSpace(q.Question),
		"{context}", topic,
	).Replace(o.cfg.Template)

	if q.History.Rejected(domain.ReasonTooLong) {
		text = shorten(text, q.CharLimit)
	}
	if o.cfg.InjectCitations {
		text = injectCitations(text)
	}
	return domain.RawAnswer{Text: text, Sources: slices.Clone(o.cfg.Sources)}, nil
}

// shorten cuts text to at most limit runes at a word boundary and ends it
// with a period.
func shorten(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	if limit < 2 {
		return "."
	}
	runes := []rune(text)
	cut := string(runes[:limit-1])
	if runes[limit-1] != ' ' {
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
	}
	return strings.TrimRight(cut, " ,;:.") + "."
}

// injectCitations adds the marker families hosted agents emit.
func injectCitations(text string) string {
	body := strings.TrimSuffix(text, ".")
	return body + " 【3:0†source】 [1]."
}
