// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel provides the byte-exact, timeout-bounded transport
// the bridge protocol runs on.
//
// A [Channel] wraps one unidirectional [Stream]. [Channel.Read] and
// [Channel.Write] either transfer exactly len(p) bytes or fail with a
// [*TransportError] whose Kind tells the caller whether the peer went
// away (Closed), the deadline passed with nothing moved (TimedOut), or
// some bytes moved before the failure (Partial). After a Partial the
// byte stream is out of step with the message framing and the channel
// pair must be torn down.
//
// Production channels are named pipes created with [CreateFIFO]. The
// host opens its ends without blocking ([OpenConsumer] then
// [OpenProducer], which reports [ErrPeerNotReady] until the worker is
// opening the other end); the worker opens its ends blocking
// ([OpenWriter] on the worker-to-host pipe first, then [OpenReader] on
// the host-to-worker pipe). Because the worker holds its writer before it
// starts opening its reader, the host's successful producer open proves
// both directions are connected.
//
// Any stream with read and write deadlines works, which is how tests
// run both ends in one process over net.Pipe.
package channel
