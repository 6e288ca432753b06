// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock interface parameter instead of
// calling time.Now, time.After, time.NewTicker, or time.Sleep
// directly. In production, Real() provides the standard library
// behavior. In tests, Fake() provides a deterministic clock that
// advances only when Advance is called.
//
// # Wiring Pattern
//
// Components carry a Clock field populated from their options:
//
//	cache := noncecache.New(noncecache.Options{Clock: clock.Real()})
//
// In tests:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	cache := noncecache.New(noncecache.Options{Clock: c})
//	c.WaitForWaiters(1)        // sweep loop has registered its ticker
//	c.Advance(5 * time.Minute) // fire the sweep deterministically
package clock
