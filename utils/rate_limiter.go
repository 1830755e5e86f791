package utils

import (
	"sync"
	"time"
)

// RateLimiter is an in-process token bucket holding up to limit tokens and
// refilling limit tokens per period. It backs per-connection websocket
// limits and the HTTP limiter when Redis is unavailable.
type RateLimiter struct {
	mutex    sync.Mutex
	limit    float64
	perToken time.Duration
	tokens   float64
	updated  time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	return &RateLimiter{
		limit:    float64(limit),
		perToken: period / time.Duration(limit),
		tokens:   float64(limit),
		updated:  time.Now(),
	}
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refill(time.Now())
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Remaining reports the whole tokens left.
func (rl *RateLimiter) Remaining() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	rl.refill(time.Now())
	return int(rl.tokens)
}

func (rl *RateLimiter) refill(now time.Time) {
	if rl.perToken <= 0 {
		rl.tokens = rl.limit
		rl.updated = now
		return
	}
	rl.tokens += float64(now.Sub(rl.updated)) / float64(rl.perToken)
	if rl.tokens > rl.limit {
		rl.tokens = rl.limit
	}
	rl.updated = now
}
