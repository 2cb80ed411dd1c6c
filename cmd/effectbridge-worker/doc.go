// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Effectbridge-worker is the out-of-process half of the effect bridge.
// The host spawns it with the paths of two named pipes, host-to-worker
// first and worker-to-host second. The worker opens both, loads effect
// modules on request, and processes audio until the host sends Shutdown
// or closes its end.
//
// Exit codes: 0 after a clean shutdown, 1 on a usage error, 2 when the
// channels could not be opened or failed mid-session.
package main
