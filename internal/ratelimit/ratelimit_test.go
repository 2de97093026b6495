package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLimiter(t *testing.T, limit int, window time.Duration) *Limiter {
	t.Helper()
	l := New(limit, window)
	t.Cleanup(l.Close)
	return l
}

func TestAllowWithinLimit(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, 20, time.Minute)

	for i := 1; i <= 20; i++ {
		res := l.Allow("client-a")
		if !res.Allowed {
			t.Fatalf("request %d rejected within limit", i)
		}
		if res.Remaining != 20-i {
			t.Errorf("request %d: remaining = %d, want %d", i, res.Remaining, 20-i)
		}
	}

	res := l.Allow("client-a")
	if res.Allowed {
		t.Error("21st request in the window should be rejected")
	}
	if res.Remaining != 0 {
		t.Errorf("rejected request remaining = %d, want 0", res.Remaining)
	}
}

func TestAllowIsolatesKeys(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, 2, time.Minute)

	l.Allow("client-a")
	l.Allow("client-a")
	if l.Allow("client-a").Allowed {
		t.Fatal("client-a should be limited")
	}
	if !l.Allow("client-b").Allowed {
		t.Error("client-b must not share client-a's window")
	}
}

func TestWindowRollsOver(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, 2, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	l.Allow("client-a")
	l.Allow("client-a")
	if l.Allow("client-a").Allowed {
		t.Fatal("expected limited")
	}

	// Just before expiry: still limited.
	l.now = func() time.Time { return base.Add(time.Minute - time.Second) }
	if l.Allow("client-a").Allowed {
		t.Fatal("window expired early")
	}

	// Past expiry: a fresh full budget, not a gradual refill.
	l.now = func() time.Time { return base.Add(time.Minute) }
	res := l.Allow("client-a")
	if !res.Allowed {
		t.Fatal("expected fresh window after expiry")
	}
	if res.Remaining != 1 {
		t.Errorf("remaining = %d, want 1 (full budget minus this request)", res.Remaining)
	}
}

func TestResetAtAnchoredAtFirstRequest(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, 5, time.Minute)
	base := time.Now()
	l.now = func() time.Time { return base }

	first := l.Allow("client-a")

	l.now = func() time.Time { return base.Add(30 * time.Second) }
	second := l.Allow("client-a")

	if !second.ResetAt.Equal(first.ResetAt) {
		t.Errorf("ResetAt moved within a window: %v vs %v", second.ResetAt, first.ResetAt)
	}
	if want := base.Add(time.Minute); !first.ResetAt.Equal(want) {
		t.Errorf("ResetAt = %v, want first request + window", first.ResetAt)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, 0, 0)
	if l.limit != DefaultLimit || l.window != DefaultWindow {
		t.Errorf("limit = %d, window = %v", l.limit, l.window)
	}
}

func TestCloseIdempotent(t *testing.T) {
	t.Parallel()

	l := New(1, time.Minute)
	l.Close()
	l.Close()
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{"remote addr only", "203.0.113.7:4411", "", "", false, "203.0.113.7"},
		{"headers ignored without trust", "203.0.113.7:4411", "198.51.100.1", "198.51.100.2", false, "203.0.113.7"},
		{"real ip preferred", "10.0.0.1:80", "198.51.100.1", "198.51.100.2", true, "198.51.100.1"},
		{"forwarded first hop", "10.0.0.1:80", "", "198.51.100.2, 10.0.0.1", true, "198.51.100.2"},
		{"invalid real ip falls through", "10.0.0.1:80", "not-an-ip", "198.51.100.2", true, "198.51.100.2"},
		{"invalid forwarded falls back to remote", "10.0.0.1:80", "", "garbage", true, "10.0.0.1"},
		{"ipv6 remote", "[2001:db8::1]:443", "", "", false, "2001:db8::1"},
		{"unparseable remote", "nonsense", "", "", false, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/api/chat", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := ClientKey(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAllowConcurrent(t *testing.T) {
	t.Parallel()

	l := newTestLimiter(t, 100, time.Minute)

	done := make(chan int, 10)
	for range 10 {
		go func() {
			allowed := 0
			for range 20 {
				if l.Allow("shared").Allowed {
					allowed++
				}
			}
			done <- allowed
		}()
	}

	total := 0
	for range 10 {
		total += <-done
	}
	if total != 100 {
		t.Errorf("admitted %d of 200 concurrent requests, want exactly 100", total)
	}
}
