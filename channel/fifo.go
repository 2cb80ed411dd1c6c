// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrPeerNotReady is returned by [OpenProducer] while nothing has the
// pipe open for reading.
var ErrPeerNotReady = errors.New("channel: no reader on the named pipe yet")

// CreateFIFO creates a named pipe at path readable and writable only by
// the current user.
func CreateFIFO(path string) error {
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return fmt.Errorf("creating named pipe %s: %w", path, err)
	}
	return nil
}

// OpenProducer opens the write end of the pipe without blocking. It
// returns [ErrPeerNotReady] when no reader exists.
func OpenProducer(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return nil, ErrPeerNotReady
		}
		return nil, fmt.Errorf("opening %s for writing: %w", path, err)
	}
	return file, nil
}

// OpenConsumer opens the read end of the pipe without blocking. It
// succeeds whether or not a writer exists; reads before a writer
// connects return EOF.
func OpenConsumer(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for reading: %w", path, err)
	}
	return file, nil
}

// OpenWriter opens the write end of the pipe, blocking until a reader
// exists.
func OpenWriter(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for writing: %w", path, err)
	}
	return file, nil
}

// OpenReader opens the read end of the pipe, blocking until a writer
// exists.
func OpenReader(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for reading: %w", path, err)
	}
	return file, nil
}
