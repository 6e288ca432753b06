// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package noncecache tracks recently used request nonces to prevent
// replay of signed requests.
//
// A nonce that has been seen and has not yet expired blocks any
// further use of the same value. Expired entries are removed by a
// periodic sweep running on its own timer, decoupled from request
// traffic, so memory stays bounded regardless of request volume and a
// request storm cannot starve cleanup.
package noncecache

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arbor-foundation/arbor/lib/clock"
)

// NonceSize is the required nonce length in bytes.
const NonceSize = 16

// Defaults for Options fields left zero.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

// Errors returned by the cache.
var (
	ErrReplayedNonce = errors.New("noncecache: nonce already used")
	ErrBadNonceSize  = errors.New("noncecache: nonce has wrong size")
)

// Options configures a Cache.
type Options struct {
	// TTL is the default retention for a recorded nonce. Defaults to
	// DefaultTTL. Must cover at least the verifier's timestamp drift
	// window, otherwise a request could be replayed after its nonce
	// expires but while its timestamp is still fresh.
	TTL time.Duration

	// SweepInterval is how often expired entries are reaped.
	// Defaults to DefaultSweepInterval.
	SweepInterval time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Cache is a thread-safe single-use nonce tracker. Create with New,
// release with Close.
type Cache struct {
	mu      sync.Mutex
	entries map[[NonceSize]byte]time.Time // nonce → expiry

	checks     uint64
	rejections uint64

	ttl       time.Duration
	clk       clock.Clock
	logger    *slog.Logger
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Cache and starts its background sweep goroutine.
func New(opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cache := &Cache{
		entries: make(map[[NonceSize]byte]time.Time),
		ttl:     opts.TTL,
		clk:     opts.Clock,
		logger:  opts.Logger,
		done:    make(chan struct{}),
	}
	go cache.sweepLoop(opts.SweepInterval)
	return cache
}

// CheckAndRecord atomically tests and records a nonce. If the nonce is
// already present and unexpired, it returns ErrReplayedNonce without
// mutating state; otherwise it records the nonce with expiry now+ttl
// and returns nil. A ttl <= 0 uses the cache default.
//
// The check and the insert happen under one lock acquisition — two
// concurrent calls with the same fresh nonce cannot both succeed.
func (c *Cache) CheckAndRecord(nonce []byte, ttl time.Duration) error {
	if len(nonce) != NonceSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBadNonceSize, len(nonce), NonceSize)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	var key [NonceSize]byte
	copy(key[:], nonce)

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	c.checks++

	if expiry, exists := c.entries[key]; exists && now.Before(expiry) {
		c.rejections++
		return ErrReplayedNonce
	}

	// Either unseen, or seen but expired and not yet swept — in both
	// cases the value is (re)usable and gets a fresh expiry.
	c.entries[key] = now.Add(ttl)
	return nil
}

// Sweep removes all entries whose expiry has passed and returns the
// number removed. The background loop calls this on every tick; tests
// call it directly for determinism.
func (c *Cache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for nonce, expiry := range c.entries {
		if !now.Before(expiry) {
			delete(c.entries, nonce)
			removed++
		}
	}
	return removed
}

func (c *Cache) sweepLoop(interval time.Duration) {
	ticker := c.clk.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if removed := c.Sweep(now); removed > 0 {
				c.logger.Debug("nonce sweep", "removed", removed)
			}
		case <-c.done:
			return
		}
	}
}

// Stats is a snapshot of cache counters.
type Stats struct {
	// Checks is the total number of CheckAndRecord calls.
	Checks uint64

	// Rejections is the total number of replay rejections.
	Rejections uint64

	// Active is the current number of recorded nonces, including
	// expired entries not yet swept.
	Active int
}

// Stats returns current cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Checks: c.checks, Rejections: c.rejections, Active: len(c.entries)}
}

// Close stops the background sweep goroutine. Safe to call more than
// once. The cache remains usable for CheckAndRecord afterwards, but
// nothing reaps expired entries.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
