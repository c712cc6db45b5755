package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAskInput_Validate verifies that blank questions and non-positive
// character limits are rejected with ErrInvalidInput.
func TestAskInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      AskInput
		wantErr bool
	}{
		{name: "valid", in: AskInput{Question: "What is X?", CharLimit: 100, MaxRetries: 3}},
		{name: "zero retries is still valid", in: AskInput{Question: "What is X?", CharLimit: 100}},
		{name: "negative retries is still valid", in: AskInput{Question: "q", CharLimit: 1, MaxRetries: -2}},
		{name: "empty question", in: AskInput{CharLimit: 100}, wantErr: true},
		{name: "whitespace question", in: AskInput{Question: " \t\n", CharLimit: 100}, wantErr: true},
		{name: "zero char limit", in: AskInput{Question: "q"}, wantErr: true},
		{name: "negative char limit", in: AskInput{Question: "q", CharLimit: -5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAskInput_ValidateDescribesField(t *testing.T) {
	err := AskInput{Question: "q"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charlimit: gt")
}

func TestAskInput_Attempts(t *testing.T) {
	assert.Equal(t, 1, AskInput{MaxRetries: -1}.Attempts())
	assert.Equal(t, 1, AskInput{MaxRetries: 0}.Attempts())
	assert.Equal(t, 1, AskInput{MaxRetries: 1}.Attempts())
	assert.Equal(t, 5, AskInput{MaxRetries: 5}.Attempts())
}

func TestResult_Err(t *testing.T) {
	assert.NoError(t, Result{Success: true, Attempts: 1}.Err())

	err := Failed(3, "attempt 3 rejected (too_long)").Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhaustedRetries))
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
	assert.Contains(t, err.Error(), "too_long")

	err = Failed(1, "").Err()
	assert.EqualError(t, err, "exhausted retries after 1 attempt(s)")
}

func TestFailed_HasEmptyNonNilLinks(t *testing.T) {
	r := Failed(2, "x")
	assert.False(t, r.Success)
	assert.Empty(t, r.Answer)
	require.NotNil(t, r.Links)
	assert.Empty(t, r.Links)
	assert.Equal(t, 2, r.Attempts)
}

func TestResult_CloneIsIndependent(t *testing.T) {
	orig := Result{Success: true, Links: []Link{{URL: "https://a.example"}}}
	c := orig.Clone()
	c.Links[0].URL = "https://b.example"
	assert.Equal(t, "https://a.example", orig.Links[0].URL)
	assert.Equal(t, []string{"https://a.example"}, orig.URLs())
}

func TestMergeLinks(t *testing.T) {
	base := []Link{
		{Text: "https://a.example", URL: "https://a.example", Start: 0, End: 17},
		{Text: "www.b.example", URL: "https://www.b.example", Start: 20, End: 33},
	}

	merged := MergeLinks(base, SourceLink("https://b.example"), SourceLink("https://a.example"), SourceLink(""))

	require.Len(t, merged, 3)
	assert.Equal(t, "https://a.example", merged[0].URL)
	assert.False(t, merged[0].External())
	assert.Equal(t, "https://www.b.example", merged[1].URL)
	assert.Equal(t, "https://b.example", merged[2].URL)
	assert.True(t, merged[2].External())
	assert.Len(t, base, 2, "base must not be modified")
}

func TestMergeLinks_Empty(t *testing.T) {
	merged := MergeLinks(nil)
	require.NotNil(t, merged)
	assert.Empty(t, merged)
}
