// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package worker implements the server side of the bridge: the loop
// that runs inside the worker process, reads one request at a time from
// the host, acts on the loaded effect, and writes exactly one response.
//
// Header reads block without a deadline, since the host may sit idle
// between calls for as long as it likes. Payload reads and response
// writes are bounded: control messages by the control timeout (1s) and
// audio by the audio timeout (2s).
//
// The loop never trusts the header. A header whose declared size cannot
// belong to its type is answered with a failure after draining exactly
// the declared bytes, so the byte stream stays aligned with the framing.
// A body that arrives but does not decode is answered the same way.
// Any failure to read or write the channel itself ends the loop: once
// the stream is out of step there is no way to find the next header.
//
// [Serve] is the worker executable's entry point: it opens the two
// named pipes in the order the host's handshake expects and runs a
// [Loop] until Shutdown, until the host closes its end, or until the
// context is cancelled.
package worker
