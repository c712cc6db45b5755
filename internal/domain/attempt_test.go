package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptHistory_CloneIsIndependent(t *testing.T) {
	h := AttemptHistory{{Index: 1, Verdict: VerdictRejected, Reason: ReasonTooLong}}
	c := h.Clone()
	c[0].Detail = "changed"
	c = append(c, AttemptRecord{Index: 2})

	assert.Empty(t, h[0].Detail)
	assert.Len(t, h, 1)
	assert.Len(t, c, 2)
}

func TestAttemptHistory_Last(t *testing.T) {
	_, ok := AttemptHistory(nil).Last()
	assert.False(t, ok)

	h := AttemptHistory{{Index: 1}, {Index: 2}}
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 2, last.Index)
}

func TestAttemptHistory_Rejected(t *testing.T) {
	h := AttemptHistory{
		{Index: 1, Verdict: VerdictBackendFailed},
		{Index: 2, Verdict: VerdictRejected, Reason: ReasonEmpty},
	}
	assert.True(t, h.Rejected(ReasonEmpty))
	assert.False(t, h.Rejected(ReasonTooLong))
}

func TestAttemptHistory_Feedback(t *testing.T) {
	assert.Empty(t, AttemptHistory(nil).Feedback())
	assert.Empty(t, AttemptHistory{{Index: 1, Verdict: VerdictAccepted}}.Feedback())

	h := AttemptHistory{
		{Index: 1, Verdict: VerdictBackendFailed, Detail: "timeout"},
		{Index: 2, Verdict: VerdictRejected, Reason: ReasonTooLong, Detail: "240 > 200 characters", CharLimit: 200},
		{Index: 3, Verdict: VerdictRejected, Reason: ReasonCitationResidue, Detail: "found 【"},
		{Index: 4, Verdict: VerdictRejected, Reason: ReasonEmpty},
		{Index: 5, Verdict: VerdictRejected, Reason: ReasonChecker, Detail: "link https://x.example unreachable"},
	}
	want := "Previous attempts were not accepted:\n" +
		"- Attempt 1: the request failed, please answer again.\n" +
		"- Attempt 2: the answer was too long (240 > 200 characters). Keep it under 200 characters.\n" +
		"- Attempt 3: the answer contained citation markers. Do not include bracketed source references.\n" +
		"- Attempt 4: the answer was empty. Provide a complete answer.\n" +
		"- Attempt 5: link https://x.example unreachable"
	assert.Equal(t, want, h.Feedback())
}

func TestAttemptRecord_Summary(t *testing.T) {
	tests := []struct {
		rec  AttemptRecord
		want string
	}{
		{AttemptRecord{Index: 1, Verdict: VerdictAccepted}, "attempt 1 accepted"},
		{AttemptRecord{Index: 2, Verdict: VerdictBackendFailed, Detail: "boom"}, "attempt 2 backend failed: boom"},
		{AttemptRecord{Index: 3, Verdict: VerdictRejected, Reason: ReasonTooLong, Detail: "9 > 5 characters"}, "attempt 3 rejected (too_long): 9 > 5 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Summary())
			assert.Equal(t, tt.rec.Verdict != VerdictAccepted, tt.rec.Failed())
		})
	}
}
