// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

// Kind classifies a transport failure.
type Kind int

const (
	// Partial means some but not all bytes moved.
	Partial Kind = iota + 1
	// Closed means the peer or the local end is gone.
	Closed
	// TimedOut means the deadline passed before any byte moved.
	TimedOut
)

func (k Kind) String() string {
	switch k {
	case Partial:
		return "partial"
	case Closed:
		return "closed"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TransportError reports a failed Read or Write.
type TransportError struct {
	Kind        Kind
	Channel     string
	Op          string
	Transferred int
	Expected    int
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("channel %s: %s %s after %d of %d bytes: %v",
		e.Channel, e.Op, e.Kind, e.Transferred, e.Expected, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *TransportError in err's chain.
func KindOf(err error) (Kind, bool) {
	var transportError *TransportError
	if errors.As(err, &transportError) {
		return transportError.Kind, true
	}
	return 0, false
}

// IsClosedError reports whether err is a normal stream termination: EOF,
// a closed file or connection, a broken pipe, or a connection reset. A
// worker whose host exits sees one of these on its next read or write.
func IsClosedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}

func classify(err error) Kind {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return TimedOut
	}
	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return TimedOut
	}
	// Anything else leaves the stream unusable; treat it as closed.
	return Closed
}
