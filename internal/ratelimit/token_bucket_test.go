package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, capacity int, refill float64) *SubmissionLimiter {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSubmissionLimiter(client, capacity, refill, time.Hour)
}

func TestAllowSubjectExhaustsBucket(t *testing.T) {
	l := newTestLimiter(t, 3, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, _, err := l.AllowSubject(ctx, "user-1")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("request %d rejected inside capacity", i)
		}
	}

	allowed, tokens, err := l.AllowSubject(ctx, "user-1")
	if err != nil {
		t.Fatalf("allow over capacity: %v", err)
	}
	if allowed {
		t.Fatal("request over capacity was allowed")
	}
	if tokens >= 1 {
		t.Fatalf("tokens = %v, want < 1", tokens)
	}
}

func TestAllowSubjectIsolatesSubjects(t *testing.T) {
	l := newTestLimiter(t, 1, 0)
	ctx := context.Background()

	if allowed, _, err := l.AllowSubject(ctx, "user-1"); err != nil || !allowed {
		t.Fatalf("first user-1 request: allowed=%v err=%v", allowed, err)
	}
	if allowed, _, err := l.AllowSubject(ctx, "user-1"); err != nil || allowed {
		t.Fatalf("second user-1 request: allowed=%v err=%v", allowed, err)
	}

	// A different subject has its own bucket.
	if allowed, _, err := l.AllowSubject(ctx, "user-2"); err != nil || !allowed {
		t.Fatalf("user-2 request: allowed=%v err=%v", allowed, err)
	}
}

func TestAllowSubjectRemainingTokens(t *testing.T) {
	l := newTestLimiter(t, 5, 0)
	ctx := context.Background()

	allowed, tokens, err := l.AllowSubject(ctx, "user-1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !allowed {
		t.Fatal("first request rejected")
	}
	if tokens != 4 {
		t.Fatalf("tokens = %v, want 4", tokens)
	}
}
