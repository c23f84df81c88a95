package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterAdmitsExactlyLimitWithinWindow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLimiter(3, time.Hour, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be admitted", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("request beyond limit should be rejected")
	}
}

func TestLimiterReadmitsAfterWindowElapses(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLimiter(2, time.Minute, func() time.Time { return now })

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("initial requests should be admitted")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("request beyond limit should be rejected")
	}

	// Move past the oldest admitted request.
	now = now.Add(time.Minute + time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Fatal("admission should resume after the window elapses")
	}
}

func TestLimiterTracksClientsIndependently(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLimiter(1, time.Hour, func() time.Time { return now })

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first client should be admitted")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("second client should be admitted")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("first client should now be rejected")
	}
}

func TestLimiterStats(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newLimiter(2, time.Hour, func() time.Time { return now })

	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.1")
	limiter.Allow("10.0.0.2")

	stats := limiter.Stats()
	if stats.TotalRequests != 3 {
		t.Fatalf("expected 3 tracked requests, got %d", stats.TotalRequests)
	}
	if stats.ActiveClients != 2 {
		t.Fatalf("expected 2 active clients, got %d", stats.ActiveClients)
	}
	if stats.RateLimitedClients != 1 {
		t.Fatalf("expected 1 limited client, got %d", stats.RateLimitedClients)
	}
}

func TestClientIPIgnoresHeadersWithoutProxyTrust(t *testing.T) {
	request := httptest.NewRequest("GET", "/", nil)
	request.RemoteAddr = "192.0.2.10:4321"
	request.Header.Set("X-Real-IP", "203.0.113.9")

	if ip := ClientIP(request, false); ip != "192.0.2.10" {
		t.Fatalf("expected remote address, got %s", ip)
	}
}

func TestClientIPUsesForwardedHeadersWhenTrusted(t *testing.T) {
	request := httptest.NewRequest("GET", "/", nil)
	request.RemoteAddr = "192.0.2.10:4321"
	request.Header.Set("X-Forwarded-For", "203.0.113.9, 198.51.100.2")

	if ip := ClientIP(request, true); ip != "203.0.113.9" {
		t.Fatalf("expected first forwarded address, got %s", ip)
	}
}

func TestClientIPRejectsNonIPHeaderValues(t *testing.T) {
	request := httptest.NewRequest("GET", "/", nil)
	request.RemoteAddr = "192.0.2.10:4321"
	request.Header.Set("X-Real-IP", "not-an-ip")

	if ip := ClientIP(request, true); ip != "192.0.2.10" {
		t.Fatalf("expected fallback to remote address, got %s", ip)
	}
}
