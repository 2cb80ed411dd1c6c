// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocateWorker returns the worker executable path. A non-empty
// explicitPath is used as given; otherwise executableName is looked up
// in the directory of the running executable. The result must be an
// executable regular file, else the error wraps [ErrWorkerNotFound].
func LocateWorker(explicitPath, executableName string) (string, error) {
	path := explicitPath
	if path == "" {
		self, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("%w: resolving own executable: %v", ErrWorkerNotFound, err)
		}
		path = filepath.Join(filepath.Dir(self), executableName)
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrWorkerNotFound, path, err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", ErrWorkerNotFound, path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%w: %s is not executable", ErrWorkerNotFound, path)
	}
	return path, nil
}
