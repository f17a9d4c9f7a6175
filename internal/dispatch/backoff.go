package dispatch

import "time"

// Backoff computes exponential retry delays: base * 2^(attempt-1),
// capped at Max so a long-failing endpoint never pushes the next attempt
// out indefinitely.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the next attempt after `attempt` failures
// (attempt counts from 1).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := b.Base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if b.Max > 0 && delay >= b.Max {
			return b.Max
		}
	}

	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}
