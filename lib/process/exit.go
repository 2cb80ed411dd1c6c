// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// Exit codes used by the effectbridge binaries.
const (
	// ExitOK is returned after a clean Shutdown or when the host
	// closes the inbound channel.
	ExitOK = 0

	// ExitUsage is returned when the command line is malformed, for
	// example when the worker receives fewer than two channel names.
	ExitUsage = 1

	// ExitFailure is returned when the process could not run to
	// completion: endpoints failed to open or the channel broke
	// mid-message.
	ExitFailure = 2
)

// Fatal writes "error: err" to stderr and exits with ExitFailure. Use
// it in main() for errors returned by run().
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(ExitFailure)
}

// Usage writes "usage: <text>" to w and exits with ExitUsage.
func Usage(w io.Writer, text string) {
	fmt.Fprintf(w, "usage: %s\n", text)
	os.Exit(ExitUsage)
}
