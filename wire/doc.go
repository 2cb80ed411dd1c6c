// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the binary message format exchanged between the
// host bridge and the worker process.
//
// Every message is a 12-byte [Header] followed by exactly
// Header.DataSize bytes of body. All integers and floats are
// little-endian; structures are packed with no padding:
//
//	offset  size  field
//	0       4     type        (uint32, a [MessageType])
//	4       4     data_size   (uint32, body length in bytes)
//	8       4     sequence_id (uint32, assigned by the host)
//
// Bodies have a fixed layout per type (see [ExpectedSize]). The one
// variable body is ProcessAudio: a 12-byte prefix of sample count, input
// channel count and output channel count, followed by
// sampleCount*inputChannelCount interleaved float32 samples. The worker's
// reply to ProcessAudio is a Response followed by an output tail of
// sampleCount*outputChannelCount float32 samples that is not counted in
// the Response header.
//
// The 264-byte Response body carries an explicit value discriminant so
// the active member of the value is never inferred from the request
// type:
//
//	offset  size  field
//	0       1     success (0 or 1)
//	1       1     value kind (0 none, 1 float, 2 int)
//	2       2     reserved, zero
//	4       4     value (float32 bits or int32)
//	8       256   error message, NUL-terminated
//
// Strings are copied into their fixed buffers truncated on a UTF-8 rune
// boundary so the terminating NUL always fits. Decoders never read past
// the body they are given and report malformed input as [*FormatError].
package wire
