package request

import (
	"net"
	"testing"
	"time"
)

func TestRateLimiterDisabledAlwaysAllows(t *testing.T) {
	r := NewRateLimiter(false, 1, 1)
	ip := net.ParseIP("10.0.0.1")
	now := time.Now()
	for i := 0; i < 5; i++ {
		if !r.Allow(ip, now) {
			t.Fatal("disabled limiter should always allow")
		}
	}
}

func TestRateLimiterEnforcesPerIPLimit(t *testing.T) {
	r := NewRateLimiter(true, 100, 2)
	ip := net.ParseIP("10.0.0.1")
	now := time.Now()

	if !r.Allow(ip, now) || !r.Allow(ip, now) {
		t.Fatal("expected first two requests within the per-IP limit to be allowed")
	}
	if r.Allow(ip, now) {
		t.Error("expected the third request in the same second to be denied")
	}
}

func TestRateLimiterRefillsAfterInterval(t *testing.T) {
	r := NewRateLimiter(true, 100, 1)
	ip := net.ParseIP("10.0.0.1")
	now := time.Now()

	if !r.Allow(ip, now) {
		t.Fatal("expected the first request to be allowed")
	}
	if r.Allow(ip, now) {
		t.Fatal("expected the second request in the same second to be denied")
	}
	if !r.Allow(ip, now.Add(time.Second)) {
		t.Error("expected the bucket to refill after one second")
	}
}

func TestTableAdmitShedsOnRateLimit(t *testing.T) {
	tbl := NewTable(256, 5*time.Second, 30*time.Second)
	tbl.RateLimit = NewRateLimiter(true, 100, 1)
	now := time.Now()

	if out := tbl.Admit(newRecord("10.0.0.1", 1, 1), now); out != Accept {
		t.Fatalf("first admit = %v, want Accept", out)
	}
	if out := tbl.Admit(newRecord("10.0.0.1", 2, 2), now); out != RejectOverload {
		t.Fatalf("second admit = %v, want RejectOverload (per-IP rate limited)", out)
	}
}
