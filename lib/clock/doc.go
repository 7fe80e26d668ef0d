// Copyright 2026 The p2paste Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// The paste arbitration processor waits for a bounded paste duration
// before moving on to the next requester. Tests cannot afford to wait
// out real durations, so the processor takes a [Clock]: production code
// passes Real(), tests pass Fake() and advance time explicitly.
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	server := session.New(session.Config{Clock: fake, ...})
//	// ... request paste ...
//	fake.WaitForTimers(1)          // processor is now waiting
//	fake.Advance(15 * time.Second) // grant expires deterministically
//
// A grant that ends early stops its [Timer], which removes the waiter
// from the fake clock. WaitForTimers therefore counts only timers that
// are still live.
package clock
