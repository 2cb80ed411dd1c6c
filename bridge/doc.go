// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge implements the host side of the effect bridge: a
// [Session] that owns the channel pair to a worker process and turns
// each host call (load a module, prepare, process a block of audio, set
// a parameter) into one request and one response on the wire.
//
// A Session is single-flight. One mutex guards every call, the session
// state, and the sequence counter, so at most one request is ever
// outstanding and responses need no correlation beyond their order. Each
// call takes the next sequence id.
//
// Failures fall into two classes. A [*PluginError] means the worker
// answered with success=false: the stream is intact and the session
// carries on. Anything else (a timeout, a closed channel, a response
// that does not parse) leaves the byte stream in an unknown position, so
// the session marks itself desynchronized and every later call fails
// fast with [ErrDesynchronized] until [Session.Restart] replaces the
// worker.
//
// ProcessAudio never touches the caller's output buffers unless the
// whole exchange succeeded. On error the caller substitutes silence.
//
// Sessions obtain workers through a [Connector]; in production that is
// a supervisor.Supervisor, in tests an in-process worker loop over
// net.Pipe.
package bridge
