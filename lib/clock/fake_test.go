// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	clock.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(3 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(3*time.Second))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount() = %d after firing, want 0", count)
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	clock := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-clock.After(d):
		default:
			t.Fatalf("After(%v) should fire immediately", d)
		}
	}
	if count := clock.PendingCount(); count != 0 {
		t.Errorf("PendingCount() = %d, want 0", count)
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})
	go func() {
		<-clock.After(time.Minute)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("goroutine waiting on After never woke up")
	}
}

func TestFakeClockTimerStop(t *testing.T) {
	clock := Fake(epoch)
	timer := clock.NewTimer(time.Minute)
	clock.After(2 * time.Minute)

	if !timer.Stop() {
		t.Fatal("Stop() = false for a pending timer")
	}
	if count := clock.PendingCount(); count != 1 {
		t.Errorf("PendingCount() = %d after Stop, want 1", count)
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	clock.Advance(time.Minute)
	select {
	case <-timer.C:
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestFakeClockTimerStopAfterFire(t *testing.T) {
	clock := Fake(epoch)
	timer := clock.NewTimer(time.Second)
	clock.Advance(time.Second)

	<-timer.C
	if timer.Stop() {
		t.Error("Stop() = true for a timer that already fired")
	}
}
