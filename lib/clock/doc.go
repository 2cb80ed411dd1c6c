// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the bridge's
// timed state machines.
//
// The worker handshake polls its endpoints every 100 ms for at most
// 5000 ms, and teardown waits a 100 ms grace period before killing the
// worker. Both are driven through a [Clock] so tests can step them
// deterministically: production code passes [Real], tests pass a
// [FakeClock] and move time with Advance.
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go supervisor.Connect(ctx)
//	fake.WaitForTimers(1)                // poll loop is waiting
//	fake.Advance(100 * time.Millisecond) // next poll attempt
//
// Channel read and write deadlines are not routed through the fake
// clock: they are enforced by the operating system's poller and always
// use wall time.
package clock
