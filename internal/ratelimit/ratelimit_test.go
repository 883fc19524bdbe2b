package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func TestAllowFirstSync(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore(), clock, time.Minute)

	allowed, retryAfter, err := l.Allow(context.Background(), "biz_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("first sync should be allowed")
	}
	if retryAfter != 0 {
		t.Errorf("retryAfter = %v, want 0", retryAfter)
	}
}

func TestDenyWithinWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore(), clock, time.Minute)
	ctx := context.Background()

	if err := l.Record(ctx, "biz_1"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	clock.advance(20 * time.Second)

	allowed, retryAfter, err := l.Allow(ctx, "biz_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Error("sync within window should be denied")
	}
	if retryAfter != 40*time.Second {
		t.Errorf("retryAfter = %v, want 40s", retryAfter)
	}
}

func TestAllowAfterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore(), clock, time.Minute)
	ctx := context.Background()

	if err := l.Record(ctx, "biz_1"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	clock.advance(time.Minute)

	allowed, _, err := l.Allow(ctx, "biz_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("sync after window should be allowed")
	}
}

func TestCompaniesIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := New(NewMemoryStore(), clock, time.Minute)
	ctx := context.Background()

	if err := l.Record(ctx, "biz_1"); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	allowed, _, err := l.Allow(ctx, "biz_2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed {
		t.Error("other company should not be limited")
	}
}

type failingStore struct{}

func (failingStore) LastSync(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, errors.New("store down")
}

func (failingStore) SetLastSync(context.Context, string, time.Time) error {
	return errors.New("store down")
}

func TestFailsOpenOnStoreError(t *testing.T) {
	l := New(failingStore{}, &fakeClock{now: time.Now()}, time.Minute)

	allowed, _, err := l.Allow(context.Background(), "biz_1")
	if err == nil {
		t.Error("expected store error to surface")
	}
	if !allowed {
		t.Error("limiter should fail open when the store errors")
	}
}
