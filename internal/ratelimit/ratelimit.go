// Package ratelimit enforces the one-sync-per-window policy per company.
// The clock and the backing store are both injected: tests pin the clock,
// single-instance deployments use the in-memory store, and multi-instance
// deployments share a Redis store.
package ratelimit

import (
	"context"
	"time"
)

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Store records the last time each company synced
type Store interface {
	LastSync(ctx context.Context, companyID string) (time.Time, bool, error)
	SetLastSync(ctx context.Context, companyID string, at time.Time) error
}

// Limiter is a fixed-window rate limiter keyed by company
type Limiter struct {
	store  Store
	clock  Clock
	window time.Duration
}

// New creates a Limiter over the given store and window
func New(store Store, clock Clock, window time.Duration) *Limiter {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Limiter{store: store, clock: clock, window: window}
}

// Allow reports whether a sync may proceed now. When denied, retryAfter is
// the remaining wait. Store errors fail open: the sync itself is idempotent,
// so a lost rate-limit read should never block it.
func (l *Limiter) Allow(ctx context.Context, companyID string) (allowed bool, retryAfter time.Duration, err error) {
	last, found, err := l.store.LastSync(ctx, companyID)
	if err != nil {
		return true, 0, err
	}
	if !found {
		return true, 0, nil
	}

	elapsed := l.clock.Now().Sub(last)
	if elapsed >= l.window {
		return true, 0, nil
	}

	return false, l.window - elapsed, nil
}

// Record marks a sync as having happened now
func (l *Limiter) Record(ctx context.Context, companyID string) error {
	return l.store.SetLastSync(ctx, companyID, l.clock.Now())
}

// Window returns the configured window length
func (l *Limiter) Window() time.Duration { return l.window }
