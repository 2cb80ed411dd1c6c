// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Effectbridge drives an effect bridge session from the command line. It
// starts a worker, loads an effect module (from --plugin, or from the
// module recorded in a --state file), runs a generated sine tone through
// it block by block, and reports the peak and RMS level of each output
// channel. Blocks that fail are replaced with silence, the same way a
// real-time host would.
//
// With --state the session's state is written back on exit, so a later
// run reloads the same module without --plugin. With --metrics-listen the
// session's Prometheus metrics are served on /metrics while it runs.
//
// Built-in modules are addressed as builtin:passthrough, builtin:gain,
// and builtin:polarity; anything else is opened as a Go plugin by the
// worker.
package main
