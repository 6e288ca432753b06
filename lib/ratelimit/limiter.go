// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit implements per-(principal, resource) token-bucket
// rate limiting for sensitive operations.
//
// Buckets are created lazily and full on first access, refill
// continuously in proportion to elapsed time (not in period-boundary
// steps, which would allow a burst of 2×max at each boundary), and are
// evicted by a background loop once idle past a TTL so one-off callers
// do not accumulate state forever.
package ratelimit

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arbor-foundation/arbor/lib/clock"
)

// Defaults for Options fields left zero.
const (
	DefaultRefillPeriod    = time.Minute
	DefaultBucketTTL       = 10 * time.Minute
	DefaultCleanupInterval = time.Minute
	DefaultMaxTokens       = 60
)

// ErrRateLimited is returned by Consume when the bucket has less than
// one whole token available.
var ErrRateLimited = errors.New("ratelimit: rate limited")

// Key identifies one bucket.
type Key struct {
	Principal string
	Resource  string
}

// bucket holds the mutable state for one (principal, resource) pair.
// Tokens are fractional so continuous refill accumulates smoothly
// between whole-token consumptions.
type bucket struct {
	tokens       float64
	maxTokens    int
	lastRefill   time.Time
	lastActivity time.Time
}

// refill credits tokens for the wall time elapsed since the last
// refill, capped at capacity. Tokens never exceed maxTokens and never
// go negative.
func (b *bucket) refill(now time.Time, refillPeriod time.Duration) {
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 {
		return
	}
	b.tokens += elapsed.Seconds() * float64(b.maxTokens) / refillPeriod.Seconds()
	if b.tokens > float64(b.maxTokens) {
		b.tokens = float64(b.maxTokens)
	}
	b.lastRefill = now
}

// Options configures a Limiter.
type Options struct {
	// RefillPeriod is the time for a bucket to refill from empty to
	// full. Defaults to DefaultRefillPeriod.
	RefillPeriod time.Duration

	// BucketTTL is how long an untouched bucket survives before the
	// cleanup loop evicts it. Defaults to DefaultBucketTTL.
	BucketTTL time.Duration

	// CleanupInterval is how often idle buckets are evicted.
	// Defaults to DefaultCleanupInterval.
	CleanupInterval time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Limiter is a thread-safe token-bucket rate limiter. Create with New,
// release with Close.
type Limiter struct {
	mu      sync.Mutex
	buckets map[Key]*bucket

	allowed uint64
	limited uint64

	refillPeriod time.Duration
	bucketTTL    time.Duration
	clk          clock.Clock
	logger       *slog.Logger
	done         chan struct{}
	closeOnce    sync.Once
}

// New creates a Limiter and starts its background cleanup goroutine.
func New(opts Options) *Limiter {
	if opts.RefillPeriod <= 0 {
		opts.RefillPeriod = DefaultRefillPeriod
	}
	if opts.BucketTTL <= 0 {
		opts.BucketTTL = DefaultBucketTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	limiter := &Limiter{
		buckets:      make(map[Key]*bucket),
		refillPeriod: opts.RefillPeriod,
		bucketTTL:    opts.BucketTTL,
		clk:          opts.Clock,
		logger:       opts.Logger,
		done:         make(chan struct{}),
	}
	go limiter.cleanupLoop(opts.CleanupInterval)
	return limiter
}

// bucketFor returns the bucket for a key, creating it full if absent.
// A maxTokens <= 0 falls back to DefaultMaxTokens. If maxTokens
// differs from the existing bucket's capacity (a grant constraint
// changed), the bucket is resized; current tokens are clamped to the
// new capacity.
func (l *Limiter) bucketFor(key Key, maxTokens int, now time.Time) *bucket {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{
			tokens:       float64(maxTokens),
			maxTokens:    maxTokens,
			lastRefill:   now,
			lastActivity: now,
		}
		l.buckets[key] = b
		return b
	}
	if b.maxTokens != maxTokens {
		b.maxTokens = maxTokens
		if b.tokens > float64(maxTokens) {
			b.tokens = float64(maxTokens)
		}
	}
	return b
}

// Consume takes one token from the bucket for (principal, resource).
// Returns ErrRateLimited when less than one whole token is available;
// the refill still applies but the token count is otherwise untouched.
func (l *Limiter) Consume(principal, resource string, maxTokens int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clk.Now()
	b := l.bucketFor(Key{principal, resource}, maxTokens, now)
	b.refill(now, l.refillPeriod)
	b.lastActivity = now

	if b.tokens < 1.0 {
		l.limited++
		return ErrRateLimited
	}
	b.tokens -= 1.0
	l.allowed++
	return nil
}

// Remaining reports the tokens currently available for (principal,
// resource) without consuming any. The refill clock still advances,
// but last-activity is not updated — inspection alone must not keep a
// bucket alive past its idle TTL.
func (l *Limiter) Remaining(principal, resource string, maxTokens int) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clk.Now()
	b := l.bucketFor(Key{principal, resource}, maxTokens, now)
	b.refill(now, l.refillPeriod)
	return b.tokens
}

// Reset discards the bucket for (principal, resource). The next access
// recreates it full.
func (l *Limiter) Reset(principal, resource string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, Key{principal, resource})
}

// Cleanup evicts buckets idle past the TTL and returns the number
// evicted. The background loop calls this on every tick; tests call it
// directly for determinism.
func (l *Limiter) Cleanup(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastActivity) > l.bucketTTL {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := l.clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if evicted := l.Cleanup(now); evicted > 0 {
				l.logger.Debug("rate bucket cleanup", "evicted", evicted)
			}
		case <-l.done:
			return
		}
	}
}

// Stats is a snapshot of limiter counters.
type Stats struct {
	// Allowed is the total number of successful consumptions.
	Allowed uint64

	// Limited is the total number of rate-limited rejections.
	Limited uint64

	// ActiveBuckets is the current number of live buckets.
	ActiveBuckets int
}

// Stats returns current limiter counters.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Allowed: l.allowed, Limited: l.limited, ActiveBuckets: len(l.buckets)}
}

// Close stops the background cleanup goroutine. Safe to call more
// than once.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}
