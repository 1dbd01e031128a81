package telemetry

import (
	"sync"
	"time"

	"github.com/banshee-data/handsense/internal/timeutil"
)

// DefaultEmitInterval keeps forwarding near 33 batches per second.
const DefaultEmitInterval = 30 * time.Millisecond

// RateLimiter gates whole batches of updates: a batch is forwarded only when
// at least Interval has passed since the previous forwarded batch. Rejected
// batches are dropped, never queued.
type RateLimiter struct {
	mu       sync.Mutex
	clock    timeutil.Clock
	interval time.Duration
	last     time.Time
	emitted  bool
}

// NewRateLimiter creates a limiter. A nil clock uses the wall clock.
func NewRateLimiter(interval time.Duration, clock timeutil.Clock) *RateLimiter {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if interval < 0 {
		interval = 0
	}
	return &RateLimiter{clock: clock, interval: interval}
}

// Interval returns the minimum gap between forwarded batches.
func (r *RateLimiter) Interval() time.Duration {
	return r.interval
}

// Allow reports whether the current batch may be forwarded and, if so,
// records now as the last emission time.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if r.emitted && now.Sub(r.last) < r.interval {
		return false
	}
	r.last = now
	r.emitted = true
	return true
}

// LastEmit returns the time of the last forwarded batch and whether one has
// happened yet.
func (r *RateLimiter) LastEmit() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.emitted
}
