// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for effectbridge
// packages.
//
// [FIFODir] creates a private directory for named pipes that is removed
// when the test completes.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a wall-clock fallback) so a test that
// deadlocks against a worker loop fails instead of hanging the suite.
// These are the only places in the test suite that use real timeouts
// for synchronization; handshake timing goes through lib/clock.
//
// [UniqueID] generates monotonically increasing identifiers, used to
// build distinct plugin paths and channel names across parallel tests.
//
// All helpers call t.Fatalf on failure rather than returning errors.
//
// This package has no effectbridge-internal dependencies.
package testutil
