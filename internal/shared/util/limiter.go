package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by the callers that must not exceed a
// common event rate.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter allows r events per second with bursts of up to b.
func NewLimiter(r float64, b int) *Limiter {
	return &Limiter{
		inner: rate.NewLimiter(rate.Limit(r), b),
	}
}

// PerMinute allows n events per minute, one at a time. n <= 0 means no limit.
func PerMinute(n int) *Limiter {
	if n <= 0 {
		return &Limiter{inner: rate.NewLimiter(rate.Inf, 1)}
	}
	return NewLimiter(float64(n)/60, 1)
}

// Allow reports whether n events may happen now and consumes them if so.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}
