// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by the host
// driver and the worker executable: the exit codes that make up the
// worker's process contract, and the fatal-error path used by main()
// before (or after) the structured logger exists.
//
// The supervisor reads the worker's exit code only for logging; the
// codes are part of the contract so that a usage error (the worker was
// started without its two channel names) is distinguishable from a
// runtime failure in the logs.
package process
