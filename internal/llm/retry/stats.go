package retry

import (
	"sync/atomic"
	"time"
)

type retryStats struct {
	totalAttempts           atomic.Int64
	successfulRetries       atomic.Int64
	failedRetries           atomic.Int64
	successfulFirstAttempts atomic.Int64
	maxBackoff              atomic.Int64 // nanoseconds
}

// Stats is a snapshot of retry activity.
type Stats struct {
	TotalAttempts     int64         `json:"total_attempts"`
	SuccessfulRetries int64         `json:"successful_retries"`
	FailedRetries     int64         `json:"failed_retries"`
	AverageAttempts   float64       `json:"average_attempts"`
	MaxBackoff        time.Duration `json:"max_backoff"`
}

func (s *retryStats) recordBackoff(backoff time.Duration) {
	n := backoff.Nanoseconds()
	for {
		current := s.maxBackoff.Load()
		if n <= current || s.maxBackoff.CompareAndSwap(current, n) {
			return
		}
	}
}

// Stats returns a snapshot of the counters.
func (r *Retrier) Stats() Stats {
	total := r.stats.totalAttempts.Load()
	retried := r.stats.successfulRetries.Load()
	failed := r.stats.failedRetries.Load()
	first := r.stats.successfulFirstAttempts.Load()

	avg := 1.0
	if requests := first + retried + failed; requests > 0 {
		avg = float64(total) / float64(requests)
	}
	return Stats{
		TotalAttempts:     total,
		SuccessfulRetries: retried,
		FailedRetries:     failed,
		AverageAttempts:   avg,
		MaxBackoff:        time.Duration(r.stats.maxBackoff.Load()),
	}
}
