// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for effectbridge
// binaries.
//
// Configuration is loaded from a single file specified by either the
// EFFECTBRIDGE_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no ~/.config discovery and no file
// search. [Resolve] implements the order the binaries use: the flag,
// then the environment variable, then the built-in [Default].
//
// Files ending in .json or .jsonc are normalized with tidwall/jsonc
// (comments and trailing commas stripped) and then decoded by the same
// YAML decoder as .yaml files, so one set of struct tags covers all
// three formats. Durations are Go duration strings ("100ms", "5s").
//
// Variable expansion is performed on worker.path after loading:
// ${HOME} and ${VAR:-default} patterns are expanded.
//
// Key exports:
//
//   - [Config] -- master struct with Worker, Timeouts, Logging, Metrics
//   - [Default] -- the timings the bridge protocol was designed around
//   - [Load], [LoadFile], and [Resolve] -- the entry points for loading
//
// This package depends on no other effectbridge packages.
package config
