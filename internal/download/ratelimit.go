package download

import (
	"context"
	"sync"
	"time"
)

// RateLimiter enforces a minimum interval between requests globally
// across all workers. It is the system's only cross-worker ordering
// guarantee: it bounds the aggregate request rate but makes no fairness
// promise between workers.
type RateLimiter struct {
	interval time.Duration

	mu   sync.Mutex
	last time.Time
}

// NewRateLimiter creates a limiter with the given minimum inter-request
// interval. A non-positive interval disables throttling entirely.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval}
}

// Wait blocks until at least the configured interval has passed since the
// previous Wait returned. The elapsed-time check, the deficit sleep and
// the timestamp update happen as one exclusive region so two workers
// cannot interleave them.
//
// Wait returns early with ctx.Err() if the context is cancelled while
// waiting.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.interval <= 0 {
		return nil
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if deficit := rl.interval - time.Since(rl.last); deficit > 0 {
		timer := time.NewTimer(deficit)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	rl.last = time.Now()
	return nil
}
