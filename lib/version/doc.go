// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the effectbridge host
// driver and worker executables. Both binaries print [Info] for
// --version, and the supervisor logs the host's version next to the
// worker's pid when a session connects, so a mismatched pair of
// binaries is visible in the logs.
//
// Values are injected at build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/effectbridge/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
