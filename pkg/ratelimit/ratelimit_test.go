package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLocalRateLimiterEnforcesBurst(t *testing.T) {
	l := NewLocalRateLimiter()
	limit := Limit{Rate: 1, Period: time.Hour, Burst: 2}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := l.Allow(ctx, "client-a", limit)
		if err != nil || !res.Allowed {
			t.Fatalf("request %d should be allowed: %+v %v", i, res, err)
		}
	}
	res, err := l.Allow(ctx, "client-a", limit)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || res.RetryAfter <= 0 {
		t.Fatalf("third request should be limited: %+v", res)
	}

	res, _ = l.Allow(ctx, "client-b", limit)
	if !res.Allowed {
		t.Fatal("separate key has its own bucket")
	}
}
