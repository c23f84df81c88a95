// Package ratelimit provides a per-client sliding-window request limiter.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const cleanupInterval = 5 * time.Minute

// Limiter admits at most limit requests per client within a rolling window.
// All state is guarded by a single mutex so concurrent handlers observe
// atomic check-and-record semantics.
type Limiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	clock       func() time.Time
	requests    map[string][]time.Time
	lastCleanup time.Time
}

// NewLimiter constructs a sliding-window limiter.
func NewLimiter(limit int, window time.Duration) *Limiter {
	return newLimiter(limit, window, time.Now)
}

func newLimiter(limit int, window time.Duration, clock func() time.Time) *Limiter {
	return &Limiter{
		limit:       limit,
		window:      window,
		clock:       clock,
		requests:    make(map[string][]time.Time),
		lastCleanup: clock(),
	}
}

// Allow reports whether a request from the given client is admitted,
// recording it when it is. The check prunes entries older than the window
// first, so admission resumes once the oldest recorded request ages out.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	cutoff := now.Add(-l.window)

	if now.Sub(l.lastCleanup) > cleanupInterval {
		l.cleanupLocked(cutoff)
		l.lastCleanup = now
	}

	recent := pruneBefore(l.requests[client], cutoff)
	if len(recent) >= l.limit {
		l.requests[client] = recent
		return false
	}

	l.requests[client] = append(recent, now)
	return true
}

func (l *Limiter) cleanupLocked(cutoff time.Time) {
	for client, stamps := range l.requests {
		recent := pruneBefore(stamps, cutoff)
		if len(recent) == 0 {
			delete(l.requests, client)
			continue
		}
		l.requests[client] = recent
	}
}

func pruneBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	kept := stamps[:0]
	for _, stamp := range stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	return kept
}

// Stats summarizes the limiter's ledger for status reporting.
type Stats struct {
	TotalRequests      int `json:"total_requests"`
	ActiveClients      int `json:"active_clients"`
	RateLimitedClients int `json:"rate_limited_clients"`
}

// Stats reports currently tracked requests, pruned to the window.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.clock().Add(-l.window)
	l.cleanupLocked(cutoff)

	stats := Stats{ActiveClients: len(l.requests)}
	for _, stamps := range l.requests {
		stats.TotalRequests += len(stamps)
		if len(stamps) >= l.limit {
			stats.RateLimitedClients++
		}
	}
	return stats
}

// ClientIP extracts the client address used as the limiter key.
//
// When trustProxy is true, X-Real-IP is preferred, then the first
// X-Forwarded-For entry. Header values are validated with net.ParseIP so
// arbitrary strings cannot become ledger keys. Otherwise only RemoteAddr
// is consulted.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
				return ip.String()
			}
		}
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			raw := xff
			if first, _, ok := strings.Cut(xff, ","); ok {
				raw = first
			}
			if ip := net.ParseIP(strings.TrimSpace(raw)); ip != nil {
				return ip.String()
			}
		}
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
