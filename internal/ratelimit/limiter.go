// Package ratelimit implements a fixed-window rate limiter keyed by client
// address, gating write access to the publish endpoint.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/serpmax/content-api/internal/clock"
)

// Config holds rate limiter configuration.
type Config struct {
	// Limit is the request ceiling per key per window.
	Limit int
	// Window is the fixed window duration.
	Window time.Duration
}

// Result reports a single rate limit decision.
type Result struct {
	Allowed bool
	Message string
	// Remaining is the number of requests left in the current window.
	Remaining int
	// ResetAt is when the current window closes.
	ResetAt time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter tracks fixed windows per client key. Window entries are never
// evicted, so the map grows with the number of distinct keys seen over the
// process lifetime; acceptable for a single-process, low-traffic deployment.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	window  time.Duration
	clock   clock.Clock
}

// New creates a Limiter. Non-positive config values fall back to a ceiling
// of 10 requests per 60 seconds.
func New(cfg Config, clk clock.Clock) *Limiter {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 10
	}
	win := cfg.Window
	if win <= 0 {
		win = time.Minute
	}
	return &Limiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  win,
		clock:   clk,
	}
}

// Check records a request for key and reports whether it is allowed. The
// first request for a key, or the first after its window elapsed, starts a
// fresh window with count 1. Rejected requests do not increment the count.
func (l *Limiter) Check(key string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	w, ok := l.windows[key]
	if !ok || !w.resetAt.After(now) {
		w = &window{count: 1, resetAt: now.Add(l.window)}
		l.windows[key] = w
		return Result{Allowed: true, Remaining: l.limit - 1, ResetAt: w.resetAt}
	}

	if w.count >= l.limit {
		return Result{
			Allowed: false,
			Message: fmt.Sprintf("rate limit exceeded, try again in %s", l.window),
			ResetAt: w.resetAt,
		}
	}

	w.count++
	return Result{Allowed: true, Remaining: l.limit - w.count, ResetAt: w.resetAt}
}
