package worker

import "time"

// RetryPolicy spaces out redelivery of failed sheet-sync tasks. Delays grow
// geometrically from InitialDelay up to MaxDelay; after MaxRetries the task is
// marked failed and dead-lettered.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// withDefaults fills zero fields so callers may pass a partial policy. The
// defaults suit the Sheets API: a quick first retry, capped at a minute so a
// longer outage drains through the poller instead of hot-looping.
func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries == 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay == 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay == 0 {
		r.MaxDelay = time.Minute
	}
	if r.BackoffFactor == 0 {
		r.BackoffFactor = 2
	}
	return r
}

// NextDelay returns the wait before the given attempt, 1-based. Attempts
// below one count as the first.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := float64(r.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= r.BackoffFactor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}

	d := time.Duration(delay)
	if d <= 0 {
		return time.Second
	}
	if r.MaxDelay > 0 && d > r.MaxDelay {
		return r.MaxDelay
	}
	return d
}
