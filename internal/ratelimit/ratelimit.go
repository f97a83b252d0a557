// Package ratelimit implements per-client fixed-window rate limiting
// backed by a persistent store, so limits survive process restarts and
// hold across replicas sharing a database.
package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/quillhq/quill/internal/log"
)

// Defaults for the admission window.
const (
	DefaultWindow      = 60 * time.Second
	DefaultMaxRequests = 20
)

// WindowStore persists per-client request windows. IncrementWindow
// atomically increments the client's counter — resetting it to 1 first if
// the stored window started more than window ago — and returns the
// post-increment count plus the window's start time.
type WindowStore interface {
	IncrementWindow(ctx context.Context, clientIP string, window time.Duration) (count int, windowStart time.Time, err error)
}

// Decision is the outcome of an admission check. RetryAfter is only
// meaningful when Allowed is false; it is the whole seconds remaining in
// the client's window, never less than 1.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits or rejects requests per client IP using a fixed window
// counter in the store.
type Limiter struct {
	store  WindowStore
	window time.Duration
	max    int
	logger log.Logger
	now    func() time.Time
}

// New creates a Limiter. Non-positive window or max fall back to the
// package defaults.
func New(store WindowStore, window time.Duration, max int, logger log.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if max <= 0 {
		max = DefaultMaxRequests
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Limiter{
		store:  store,
		window: window,
		max:    max,
		logger: logger,
		now:    time.Now,
	}
}

// Admit records one request for clientIP and reports whether it is within
// the window's budget. Store failures fail open: the request is admitted
// and the error is logged, so a degraded database never blocks reads.
func (l *Limiter) Admit(ctx context.Context, clientIP string) Decision {
	count, windowStart, err := l.store.IncrementWindow(ctx, clientIP, l.window)
	if err != nil {
		l.logger.Warn("rate limit check failed, admitting request",
			"client_ip", clientIP,
			"error", err,
		)
		return Decision{Allowed: true}
	}

	if count <= l.max {
		return Decision{Allowed: true}
	}

	retryAfter := l.retryAfter(windowStart)
	l.logger.Info("rate limit exceeded",
		"client_ip", clientIP,
		"count", count,
		"max", l.max,
		"retry_after", retryAfter,
	)
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// retryAfter returns the time until the window expires, rounded up to
// whole seconds and floored at one second.
func (l *Limiter) retryAfter(windowStart time.Time) time.Duration {
	remaining := l.window - l.now().Sub(windowStart)
	secs := math.Ceil(remaining.Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
