package httpapi

import (
	"testing"
	"time"
)

func TestIPLimiter_EvictsIdleClients(t *testing.T) {
	limiter := newIPLimiter(1, 1)
	limiter.maxTracked = 3
	limiter.idleAfter = time.Minute

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		limiter.limiterFor(ip)
	}

	// Age two buckets past the idle cutoff so the next new client at the
	// cap sweeps them out.
	limiter.mu.Lock()
	cutoff := time.Now().Add(-2 * time.Minute)
	limiter.limiters["10.0.0.1"].lastSeen = cutoff
	limiter.limiters["10.0.0.2"].lastSeen = cutoff
	limiter.mu.Unlock()

	limiter.limiterFor("10.0.0.4")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.limiters) != 2 {
		t.Fatalf("Expected 2 tracked clients after eviction, got %d", len(limiter.limiters))
	}
	if _, ok := limiter.limiters["10.0.0.3"]; !ok {
		t.Error("Expected recently seen client to survive eviction")
	}
	if _, ok := limiter.limiters["10.0.0.4"]; !ok {
		t.Error("Expected new client to be tracked")
	}
}

func TestIPLimiter_ActiveClientsSurviveCap(t *testing.T) {
	limiter := newIPLimiter(1, 1)
	limiter.maxTracked = 2
	limiter.idleAfter = time.Minute

	limiter.limiterFor("10.0.0.1")
	limiter.limiterFor("10.0.0.2")
	limiter.limiterFor("10.0.0.3")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if _, ok := limiter.limiters[ip]; !ok {
			t.Errorf("Active bucket for %s must not be evicted", ip)
		}
	}
}
