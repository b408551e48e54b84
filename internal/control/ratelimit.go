package control

import (
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces applied hue changes at least interval apart.
// Ready does not consume; only Mark does, so a failed bridge call leaves the
// next sample free to retry.
type RateLimiter struct {
	limiter  *rate.Limiter // nil when interval is zero
	interval time.Duration
	last     time.Time
}

// NewRateLimiter creates a limiter allowing one change per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	r := &RateLimiter{interval: interval}
	if interval > 0 {
		r.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return r
}

// Ready reports whether a change may be applied at now: never marked, or at
// least interval elapsed since the last Mark.
func (r *RateLimiter) Ready(now time.Time) bool {
	if r.limiter == nil || r.last.IsZero() {
		return true
	}
	// Token math is float and lands at 0.999... exactly one interval after Mark
	if !now.Before(r.last.Add(r.interval)) {
		return true
	}
	return r.limiter.TokensAt(now) >= 1
}

// Mark records a change applied at now.
func (r *RateLimiter) Mark(now time.Time) {
	if r.limiter != nil {
		// Reserve always takes the token, even when the bucket is a hair short
		r.limiter.ReserveN(now, 1)
	}
	r.last = now
}

// Last returns when the last change was applied, zero if none.
func (r *RateLimiter) Last() time.Time {
	return r.last
}
