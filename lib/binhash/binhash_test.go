// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zeebo/blake3"
)

func TestHashFile(t *testing.T) {
	t.Parallel()

	content := []byte("effect module bytes")
	path := filepath.Join(t.TempDir(), "effect.so")
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := blake3.Sum256(content); got != want {
		t.Errorf("HashFile = %x, want %x", got, want)
	}
}

func TestHashFileLarge(t *testing.T) {
	t.Parallel()

	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "large.so")
	if err := os.WriteFile(path, content, 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := blake3.Sum256(content); got != want {
		t.Errorf("HashFile(256KiB) = %x, want %x", got, want)
	}
}

func TestHashFileNonexistent(t *testing.T) {
	t.Parallel()

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing.so")); err == nil {
		t.Fatal("HashFile should fail for a nonexistent file")
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	directory := t.TempDir()
	path := filepath.Join(directory, "effect.so")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fingerprint, err := Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if want := FormatDigest(blake3.Sum256([]byte("x"))); fingerprint != want {
		t.Errorf("Fingerprint = %s, want %s", fingerprint, want)
	}
	if len(fingerprint) != 64 {
		t.Errorf("fingerprint length = %d, want 64", len(fingerprint))
	}

	for _, path := range []string{"builtin:gain", directory, filepath.Join(directory, "missing.so")} {
		fingerprint, err := Fingerprint(path)
		if err != nil || fingerprint != "" {
			t.Errorf("Fingerprint(%s) = %q, %v; want empty", path, fingerprint, err)
		}
	}
}
