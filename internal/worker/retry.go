package worker

import "time"

// RetryPolicy bounds how often a failed workflow push is retried and how
// the delay between attempts grows.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Exhausted reports whether a task has used up its retry budget.
func (r RetryPolicy) Exhausted(retryCount int) bool {
	return retryCount >= r.MaxRetries
}

// NextDelay returns the backoff before the given attempt (1-based),
// growing by the factor and clamped to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	d := initial
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * factor)
		if r.MaxDelay > 0 && d >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if d <= 0 {
		return time.Second
	}
	return d
}
