package logger

import (
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultRateInterval = 5 * time.Second
	DefaultRateBurst    = 10
)

// RateLimiter admits bursts of up to burst messages, refilled at burst per
// interval, and counts the ones it suppresses. The suppressed count is
// reported with the next admitted message.
type RateLimiter struct {
	limiter    *rate.Limiter
	now        func() time.Time
	suppressed atomic.Uint64
}

func NewRateLimiter(interval time.Duration, burst int) *RateLimiter {
	if interval <= 0 {
		interval = DefaultRateInterval
	}
	if burst <= 0 {
		burst = DefaultRateBurst
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst),
		now:     time.Now,
	}
}

// Allow reports whether a message may be emitted now, together with the
// number of messages suppressed since the last allowed one.
func (r *RateLimiter) Allow() (bool, uint64) {
	if !r.limiter.AllowN(r.now(), 1) {
		r.suppressed.Add(1)
		return false, 0
	}
	return true, r.suppressed.Swap(0)
}

func (r *RateLimiter) Error(l *slog.Logger, msg string, args ...any) {
	ok, missed := r.Allow()
	if !ok {
		return
	}
	if missed > 0 {
		args = append(args, "suppressed", missed)
	}
	l.Error(msg, args...)
}
