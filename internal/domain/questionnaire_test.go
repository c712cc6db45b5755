package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuestionnaire() *Questionnaire {
	return &Questionnaire{
		Name:    "vendor security review",
		Context: "Acme Shipping API",
		Questions: []QuestionItem{
			{ID: "sec-1", Question: "Do you encrypt data at rest?"},
			{Question: "Is SSO supported?", CharLimit: 150},
			{ID: "sec-3", Question: "Where is data hosted?", Context: "EU customers"},
		},
	}
}

func TestQuestionnaire_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Questionnaire)
		errMsg string
	}{
		{name: "valid", modify: func(*Questionnaire) {}},
		{name: "no questions", modify: func(q *Questionnaire) { q.Questions = nil }, errMsg: "questions: required"},
		{name: "blank question", modify: func(q *Questionnaire) { q.Questions[0].Question = "  " }, errMsg: "question: notblank"},
		{name: "negative char limit", modify: func(q *Questionnaire) { q.CharLimit = -1 }, errMsg: "charlimit: gte"},
		{name: "duplicate id", modify: func(q *Questionnaire) { q.Questions[2].ID = "sec-1" }, errMsg: `duplicate question id "sec-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuestionnaire()
			tt.modify(q)
			err := q.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidQuestionnaire)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestQuestionnaire_NormalizeAndInput(t *testing.T) {
	q := validQuestionnaire()
	q.Normalize()

	assert.Equal(t, DefaultCharLimit, q.CharLimit)
	assert.Equal(t, DefaultMaxRetries, q.MaxRetries)
	assert.Equal(t, "q2", q.Questions[1].ID)

	in := q.Input(q.Questions[0], false)
	assert.Equal(t, AskInput{
		Question:   "Do you encrypt data at rest?",
		Context:    "Acme Shipping API",
		CharLimit:  DefaultCharLimit,
		MaxRetries: DefaultMaxRetries,
	}, in)

	in = q.Input(q.Questions[1], true)
	assert.Equal(t, 150, in.CharLimit)
	assert.True(t, in.Verbose)

	in = q.Input(q.Questions[2], false)
	assert.Equal(t, "EU customers", in.Context)
	assert.NoError(t, in.Validate())
}

func TestReport_Summarize(t *testing.T) {
	r := Report{Items: []ItemResult{
		{ID: "a", Result: Result{Success: true, Attempts: 1}},
		{ID: "b", Result: Result{Success: false, Attempts: 3}},
		{ID: "c", Result: Result{Success: true, Attempts: 2}},
	}}
	r.Summarize()
	assert.Equal(t, ReportSummary{Total: 3, Succeeded: 2, Failed: 1, Attempts: 6}, r.Summary)
}

func TestQuestionnaire_NormalizeWith(t *testing.T) {
	q := validQuestionnaire()
	q.MaxRetries = 5
	q.NormalizeWith(400, 2)

	assert.Equal(t, 400, q.CharLimit)
	assert.Equal(t, 5, q.MaxRetries, "explicit values are kept")
	assert.Equal(t, "q2", q.Questions[1].ID)
	assert.Equal(t, 150, q.Input(q.Questions[1], false).CharLimit)
}
