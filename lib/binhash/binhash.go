// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// HashFile computes the BLAKE3-256 digest of the file at path. The file
// is streamed through the hasher so memory use does not depend on file
// size.
func HashFile(path string) ([32]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return [32]byte{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return [32]byte{}, fmt.Errorf("hashing %s: %w", path, err)
	}

	var digest [32]byte
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FormatDigest returns the hex encoding of digest, the form used in log
// output.
func FormatDigest(digest [32]byte) string {
	return hex.EncodeToString(digest[:])
}

// Fingerprint returns the formatted digest of the file at path, or ""
// when path is not a regular file (a built-in module name, for
// example).
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", nil
	}
	digest, err := HashFile(path)
	if err != nil {
		return "", err
	}
	return FormatDigest(digest), nil
}
