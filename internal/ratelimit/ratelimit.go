// Package ratelimit implements per-client fixed-window request limiting for
// the chat endpoint. Windows are anchored at a client's first request, not
// aligned to wall-clock minutes, and counters live in process memory: limits
// are per instance, which is the accepted behavior for a single-instance
// deployment.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultLimit is the number of requests allowed per window.
	DefaultLimit = 20

	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Minute

	// sweepInterval is how often stale windows are collected.
	sweepInterval = 5 * time.Minute
)

// Result describes one admission decision.
type Result struct {
	Allowed   bool
	Remaining int       // requests left in the current window
	ResetAt   time.Time // when the current window expires
}

// Limiter is a fixed-window request limiter keyed by client identity.
//
// An expired window is replaced on the next request rather than refilled
// gradually: a client that exhausts its budget waits for the window to roll
// over, then gets the full budget again. Safe for concurrent use.
type Limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*windowEntry

	done     chan struct{}
	stopOnce sync.Once

	// now is swappable for tests.
	now func() time.Time
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// New creates a Limiter and starts its sweep goroutine. Call Close to stop
// it. Non-positive limit or window fall back to the defaults.
func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*windowEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go l.sweep()
	return l
}

// Limit returns the per-window request cap.
func (l *Limiter) Limit() int { return l.limit }

// Allow records one request for key and reports whether it is admitted.
func (l *Limiter) Allow(key string) Result {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &windowEntry{resetAt: now.Add(l.window)}
		l.entries[key] = e
	}

	if e.count >= l.limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt}
	}

	e.count++
	return Result{Allowed: true, Remaining: l.limit - e.count, ResetAt: e.resetAt}
}

// sweep drops expired windows so idle clients do not accumulate.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			now := l.now()
			l.mu.Lock()
			for key, e := range l.entries {
				if !now.Before(e.resetAt) {
					delete(l.entries, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Close stops the sweep goroutine. Safe to call more than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}

// ClientKey derives the rate-limit key for a request. Forwarding headers are
// consulted only when trustProxy is set; otherwise a spoofed header would
// let any client mint fresh identities. Unidentifiable clients share the
// "unknown" bucket rather than bypassing the limit.
func ClientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			// First address is the originating client.
			first := strings.TrimSpace(strings.Split(fwd, ",")[0])
			if net.ParseIP(first) != nil {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "unknown"
	}
	return host
}
