package domain

import (
	"fmt"
	"strings"
	"time"
)

// Questionnaire is a batch of questions answered with shared defaults.
type Questionnaire struct {
	Name       string `yaml:"name" json:"name"`
	Context    string `yaml:"context,omitempty" json:"context,omitempty"`
	CharLimit  int    `yaml:"char_limit,omitempty" json:"char_limit,omitempty" validate:"gte=0"`
	MaxRetries int    `yaml:"max_retries,omitempty" json:"max_retries,omitempty" validate:"gte=0"`

	Questions []QuestionItem `yaml:"questions" json:"questions" validate:"required,min=1,dive"`
}

// QuestionItem is one row of a questionnaire. Zero-valued fields inherit the
// questionnaire defaults.
type QuestionItem struct {
	ID        string `yaml:"id" json:"id"`
	Question  string `yaml:"question" json:"question" validate:"notblank"`
	Context   string `yaml:"context,omitempty" json:"context,omitempty"`
	CharLimit int    `yaml:"char_limit,omitempty" json:"char_limit,omitempty" validate:"gte=0"`
}

// Validate checks the questionnaire and that item IDs are unique.
// Blank IDs are allowed and are assigned by Normalize.
func (q *Questionnaire) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidQuestionnaire, describeValidation(err))
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for _, item := range q.Questions {
		if item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			return fmt.Errorf("%w: duplicate question id %q", ErrInvalidQuestionnaire, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

// Normalize fills blank IDs with their 1-based position ("q1", "q2", ...)
// and applies package defaults to unset limits.
func (q *Questionnaire) Normalize() {
	q.NormalizeWith(DefaultCharLimit, DefaultMaxRetries)
}

// NormalizeWith is Normalize with caller-supplied defaults.
func (q *Questionnaire) NormalizeWith(charLimit, maxRetries int) {
	if q.CharLimit == 0 {
		q.CharLimit = charLimit
	}
	if q.MaxRetries == 0 {
		q.MaxRetries = maxRetries
	}
	for i := range q.Questions {
		if strings.TrimSpace(q.Questions[i].ID) == "" {
			q.Questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
}

// Input builds the ask request for item, resolving inherited fields.
func (q *Questionnaire) Input(item QuestionItem, verbose bool) AskInput {
	in := AskInput{
		Question:   item.Question,
		Context:    item.Context,
		CharLimit:  item.CharLimit,
		MaxRetries: q.MaxRetries,
		Verbose:    verbose,
	}
	if in.Context == "" {
		in.Context = q.Context
	}
	if in.CharLimit == 0 {
		in.CharLimit = q.CharLimit
	}
	return in
}

// ItemResult is the answer to one questionnaire row.
type ItemResult struct {
	ID       string `yaml:"id" json:"id"`
	Question string `yaml:"question" json:"question"`
	Result   `yaml:",inline" json:",inline"`

	// Error carries infrastructure failures, such as an invalid item or a
	// cancelled run, as opposed to exhausted retries.
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Transcript is the reasoning trace, kept for verbose runs only.
	Transcript []string `yaml:"transcript,omitempty" json:"transcript,omitempty"`
}

// Report is the output of a questionnaire run.
type Report struct {
	RunID       string        `yaml:"run_id" json:"run_id"`
	Name        string        `yaml:"name" json:"name"`
	StartedAt   time.Time     `yaml:"started_at" json:"started_at"`
	CompletedAt time.Time     `yaml:"completed_at" json:"completed_at"`
	Items       []ItemResult  `yaml:"items" json:"items"`
	Summary     ReportSummary `yaml:"summary" json:"summary"`
}

// ReportSummary aggregates item outcomes.
type ReportSummary struct {
	Total     int `yaml:"total" json:"total"`
	Succeeded int `yaml:"succeeded" json:"succeeded"`
	Failed    int `yaml:"failed" json:"failed"`
	Attempts  int `yaml:"attempts" json:"attempts"`
}

// Summarize recomputes the summary from Items.
func (r *Report) Summarize() {
	s := ReportSummary{Total: len(r.Items)}
	for _, it := range r.Items {
		if it.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.Attempts += it.Attempts
	}
	r.Summary = s
}
