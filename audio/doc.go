// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package audio converts between the host's per-channel sample buffers
// and the wire's interleaved layout.
//
// An interleaved block of sampleCount frames over channelCount channels
// stores sample i of channel ch at flat[i*channelCount+ch]. [Interleave]
// and [Deinterleave] are exact inverses for all non-negative counts. The
// Into variants write into caller-owned buffers so the audio callback
// path does not allocate.
package audio
