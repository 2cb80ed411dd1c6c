// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hoststate persists what a host needs to bring a bridge session
// back after a restart: the state format version and the path of the
// loaded effect module.
//
// The blob is deterministic CBOR (see lib/codec), the same bytes for the
// same state on every run, so hosts that store it in a project file do
// not see spurious changes. Decoding ignores unknown fields so that a
// newer writer adding fields does not break an older reader; a blob
// whose version is newer than [CurrentVersion] is still rejected, since
// its meaning may have changed.
//
// [WriteFile] replaces a state file atomically: write to a temporary
// file in the same directory, fsync, rename, fsync the directory.
// Readers never see a partial write.
package hoststate
