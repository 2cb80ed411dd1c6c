// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the process-wide slog.Logger for effectbridge
// binaries.
//
// When the destination is a terminal (checked with golang.org/x/term)
// records go through a charmbracelet/log handler for human-readable,
// colored output. Otherwise records are written as JSON lines, the
// format the host's log collection expects from a worker whose stderr
// is a pipe.
//
// Callers scope the logger with component context via With():
//
//	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
//	sessionLogger := logger.With("component", "bridge")
package logging
