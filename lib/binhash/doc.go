// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash fingerprints effect module files.
//
// When the worker loads a module from disk it logs the module's BLAKE3
// digest next to the path, so two runs that loaded "the same" path can
// be told apart after the file was replaced. Digests are formatted as
// lowercase hex.
package binhash
