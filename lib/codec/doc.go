// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides effectbridge's standard CBOR encoding
// configuration.
//
// effectbridge uses two serialization formats with a clear boundary:
//
//   - The fixed little-endian wire format (package wire) for every byte
//     that crosses the host/worker channel pair. That format is dictated
//     by the legacy worker's memory layout and never changes shape.
//   - CBOR for host-side state that outlives a session: the persisted
//     host state blob returned by SaveState and the state file written
//     by the host CLI.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical data always produces identical bytes, so a saved state blob
// can be compared byte for byte.
//
//	data, err := codec.Marshal(state)
//	err = codec.Unmarshal(data, &state)
//
// Types serialized here carry `cbor` struct tags with short keys and
// omitempty on optional fields. Unknown fields are ignored on decode, so
// a blob written by a newer host still restores on an older one.
package codec
