// Copyright 2026 The Arbor Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeNowStandsStill(t *testing.T) {
	c := Fake(testEpoch)
	if got := c.Now(); !got.Equal(testEpoch) {
		t.Errorf("Now() = %v, want %v", got, testEpoch)
	}
	c.Advance(42 * time.Second)
	if got := c.Now(); !got.Equal(testEpoch.Add(42 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, testEpoch.Add(42*time.Second))
	}
}

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	c := Fake(testEpoch)
	ch := c.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("After channel fired before Advance")
	default:
	}

	c.Advance(10 * time.Second)
	select {
	case got := <-ch:
		if !got.Equal(testEpoch.Add(10 * time.Second)) {
			t.Errorf("fire time = %v, want %v", got, testEpoch.Add(10*time.Second))
		}
	default:
		t.Fatal("After channel did not fire after Advance")
	}
}

func TestFakeAfterNonPositiveFiresImmediately(t *testing.T) {
	c := Fake(testEpoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTickerFiresPerInterval(t *testing.T) {
	c := Fake(testEpoch)
	ticker := c.NewTicker(time.Minute)
	defer ticker.Stop()

	c.Advance(time.Minute)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after one interval")
	}

	// Two intervals at once: channel capacity is 1, so exactly one
	// tick is observable afterwards.
	c.Advance(2 * time.Minute)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after two intervals")
	}
}

func TestFakeTickerStop(t *testing.T) {
	c := Fake(testEpoch)
	ticker := c.NewTicker(time.Second)
	ticker.Stop()

	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeSleepUnblocksOnAdvance(t *testing.T) {
	c := Fake(testEpoch)
	done := make(chan struct{})
	go func() {
		c.Sleep(time.Hour)
		close(done)
	}()

	c.WaitForWaiters(1)
	c.Advance(time.Hour)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not unblock after Advance")
	}
}

func TestFakeWaitForWaiters(t *testing.T) {
	c := Fake(testEpoch)
	go c.After(time.Second)
	go c.NewTicker(time.Second)
	c.WaitForWaiters(2) // returns only once both are registered
}
