// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervisor owns the worker process and the channel pair that
// connects to it.
//
// [Supervisor.Connect] locates the worker executable ([LocateWorker]),
// creates a fresh pair of named pipes in a private directory
// ([NewFIFOEndpoints]), spawns the worker with the two pipe paths as its
// only arguments, and runs the [Handshake]: a state machine that polls
// the non-blocking open of both channel ends every poll interval until
// it succeeds, the worker exits, or the connect ceiling passes. Time is
// read through lib/clock so tests drive the poll loop with a fake clock.
//
// [Supervisor.Teardown] stops the worker: it runs the caller's shutdown
// notifier while the worker is alive, waits the grace period, kills the
// worker if it is still running, then closes both channels and removes
// the pipe directory. Teardown is idempotent and safe after a failed
// Connect.
package supervisor
