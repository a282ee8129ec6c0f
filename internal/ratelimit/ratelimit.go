// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ratelimit enforces per-source request budgets over a trailing
// minute and a trailing hour.
package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Trailing windows.
const (
	minute = time.Minute
	hour   = time.Hour
)

// Limiter hands out admissions per source key. Each key keeps a log of
// its admission times over the trailing hour. A request is admitted only
// when fewer than PerMinute admissions fall in the trailing minute and
// fewer than PerHour in the trailing hour.
type Limiter struct {
	perMinute int
	perHour   int

	mu   sync.Mutex
	logs map[string][]time.Time
	now  func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now. Tests use it to step time deterministically.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter admitting at most perMinute requests in any
// trailing minute and perHour in any trailing hour, per key.
func New(perMinute, perHour int, opts ...Option) (*Limiter, error) {
	if perMinute <= 0 || perHour <= 0 {
		return nil, fmt.Errorf("ratelimit: thresholds must be positive (minute=%d, hour=%d)", perMinute, perHour)
	}
	l := &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		logs:      make(map[string][]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Admit records a request for key when both windows allow it and returns
// zero. Otherwise it records nothing and returns how long until the
// fuller window drops back under its threshold, rounded up to the
// millisecond.
func (l *Limiter) Admit(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	log := prune(l.logs[key], now.Add(-hour))

	var wait time.Duration
	if n := len(log); n >= l.perHour {
		wait = log[n-l.perHour].Add(hour).Sub(now)
	}
	inMinute := since(log, now.Add(-minute))
	if n := len(inMinute); n >= l.perMinute {
		wait = max(wait, inMinute[n-l.perMinute].Add(minute).Sub(now))
	}

	if wait > 0 {
		l.logs[key] = log
		return roundUpMillis(wait)
	}
	l.logs[key] = append(log, now)
	return 0
}

// prune drops the entries at or before cutoff. The log is in admission
// order.
func prune(log []time.Time, cutoff time.Time) []time.Time {
	rest := since(log, cutoff)
	if len(rest) == len(log) {
		return log
	}
	return append(log[:0], rest...)
}

// since returns the suffix of log strictly after cutoff.
func since(log []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(log), func(i int) bool { return log[i].After(cutoff) })
	return log[i:]
}

// Wait blocks until key is admitted or ctx is done.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	for {
		d := l.Admit(key)
		if d == 0 {
			return nil
		}
		t := time.NewTimer(d)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Limits returns the configured per-minute and per-hour thresholds.
func (l *Limiter) Limits() (perMinute, perHour int) {
	return l.perMinute, l.perHour
}

func roundUpMillis(d time.Duration) time.Duration {
	if r := d % time.Millisecond; r != 0 {
		d += time.Millisecond - r
	}
	return d
}
