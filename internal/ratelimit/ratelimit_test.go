package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterEnforcesCeiling(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute, 3)

	for i := 1; i <= 3; i++ {
		allowed, remaining, errAllow := limiter.Allow(context.Background(), "ip:1.2.3.4")
		if errAllow != nil {
			t.Fatalf("allow %d: %v", i, errAllow)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if remaining != 3-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 3-i, remaining)
		}
	}

	allowed, remaining, errAllow := limiter.Allow(context.Background(), "ip:1.2.3.4")
	if errAllow != nil {
		t.Fatalf("allow: %v", errAllow)
	}
	if allowed || remaining != 0 {
		t.Fatalf("request over the ceiling should be denied, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestMemoryLimiterIsolatesKeys(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute, 1)

	if allowed, _, _ := limiter.Allow(context.Background(), "ip:1.1.1.1"); !allowed {
		t.Fatal("first key should be allowed")
	}
	if allowed, _, _ := limiter.Allow(context.Background(), "ip:2.2.2.2"); !allowed {
		t.Fatal("second key should have its own window")
	}
	if allowed, _, _ := limiter.Allow(context.Background(), "ip:1.1.1.1"); allowed {
		t.Fatal("first key should now be over its ceiling")
	}
}

func TestMemoryLimiterResetsAfterWindow(t *testing.T) {
	limiter := NewMemoryLimiter(30*time.Millisecond, 1)

	if allowed, _, _ := limiter.Allow(context.Background(), "ip:1.2.3.4"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _, _ := limiter.Allow(context.Background(), "ip:1.2.3.4"); allowed {
		t.Fatal("second request should be denied")
	}

	time.Sleep(40 * time.Millisecond)

	if allowed, _, _ := limiter.Allow(context.Background(), "ip:1.2.3.4"); !allowed {
		t.Fatal("request after window reset should be allowed")
	}
}
