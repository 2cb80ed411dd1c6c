// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// FIFODir creates a private directory for named pipes. The directory is
// created with mode 0700 under the system temporary directory and is
// removed, with any FIFOs left in it, when the test completes.
func FIFODir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("", "effectbridge-test-*")
	if err != nil {
		t.Fatalf("creating FIFO directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}
