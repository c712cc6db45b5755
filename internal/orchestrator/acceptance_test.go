package orchestrator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-questionnaire/internal/backend"
	"github.com/ahrav/go-questionnaire/internal/domain"
)

func TestAccept(t *testing.T) {
	tests := []struct {
		name       string
		clean      string
		limit      int
		wantReason domain.RejectionReason
		wantDetail string
	}{
		{name: "accepted", clean: "A fine answer.", limit: 100},
		{name: "exactly at limit", clean: "12345", limit: 5},
		{name: "blank", clean: "\n\t ", limit: 100, wantReason: domain.ReasonEmpty, wantDetail: "answer is empty after sanitization"},
		{name: "one over limit", clean: "123456", limit: 5, wantReason: domain.ReasonTooLong, wantDetail: "6 > 5 characters"},
		{name: "stray dagger", clean: "Odd † mark.", limit: 100, wantReason: domain.ReasonCitationResidue},
		{name: "length checked before residue", clean: "Odd † mark.", limit: 3, wantReason: domain.ReasonTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, detail := accept(tt.clean, tt.limit)
			assert.Equal(t, tt.wantReason, reason)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, detail)
			}
		})
	}
}

type fakeChecker struct {
	name   string
	errs   []error
	calls  atomic.Int32
	answer atomic.Value
}

func (c *fakeChecker) Name() string { return c.name }

func (c *fakeChecker) Check(_ context.Context, _ string, answer string, _ []domain.Link) error {
	n := int(c.calls.Add(1))
	c.answer.Store(answer)
	return c.errs[min(n, len(c.errs))-1]
}

func TestRun_CheckerRejectionFeedsNextAttempt(t *testing.T) {
	links := &fakeChecker{name: "link checker", errs: []error{errors.New("https://dead.example unreachable"), nil}}
	be := script(
		reply{text: "See https://dead.example for details."},
		reply{text: "See https://alive.example for details."},
	)
	tr := &Transcript{}

	res, err := New(be, WithCheckers(links), WithRecorder(tr)).Run(context.Background(), ask("q?", 200, 3))

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Attempts)
	assert.EqualValues(t, 2, links.calls.Load())
	assert.Equal(t, "See https://alive.example for details.", links.answer.Load())

	calls := be.calls()
	require.Len(t, calls, 2)
	rec := calls[1].History[0]
	assert.Equal(t, domain.ReasonChecker, rec.Reason)
	assert.Equal(t, "link checker: https://dead.example unreachable", rec.Detail)
	assert.Contains(t, calls[1].History.Feedback(), "https://dead.example unreachable")
	assert.Contains(t, tr.Lines(), "link checker: passed")
}

func TestRun_CheckersRunInOrderAndStopAtFirstRejection(t *testing.T) {
	first := &fakeChecker{name: "first", errs: []error{errors.New("no")}}
	second := &fakeChecker{name: "second", errs: []error{nil}}

	res, err := New(backend.Text("Answer."), WithCheckers(first, second)).Run(context.Background(), ask("q?", 100, 2))

	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.EqualValues(t, 2, first.calls.Load())
	assert.Zero(t, second.calls.Load())
	assert.Equal(t, "attempt 2 rejected (checker): first: no", res.LastFailure)
}

func TestRun_CheckersSkippedWhenBuiltInCriteriaFail(t *testing.T) {
	c := &fakeChecker{name: "never", errs: []error{nil}}
	res, err := New(backend.Text("far too long"), WithCheckers(c)).Run(context.Background(), ask("q?", 3, 2))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Zero(t, c.calls.Load())
}
