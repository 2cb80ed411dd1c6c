// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Stream is a byte stream with deadlines. *os.File on a pipe and
// net.Conn both satisfy it.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// Channel transfers whole buffers over a Stream.
type Channel struct {
	name   string
	stream Stream

	closeOnce sync.Once
	closeErr  error
}

// New wraps stream. name identifies the channel in errors and logs.
func New(name string, stream Stream) *Channel {
	return &Channel{name: name, stream: stream}
}

// Name returns the channel's name.
func (c *Channel) Name() string {
	return c.name
}

// Write writes all of p. A timeout of zero or less means no deadline.
func (c *Channel) Write(p []byte, timeout time.Duration) (int, error) {
	if err := c.stream.SetWriteDeadline(deadline(timeout)); err != nil {
		return 0, c.transportError("write", 0, len(p), fmt.Errorf("setting deadline: %w", err))
	}
	written := 0
	for written < len(p) {
		n, err := c.stream.Write(p[written:])
		written += n
		if err != nil {
			return written, c.transportError("write", written, len(p), err)
		}
		if n == 0 {
			return written, c.transportError("write", written, len(p), io.ErrShortWrite)
		}
	}
	return written, nil
}

// Read fills all of p. A timeout of zero or less means no deadline.
func (c *Channel) Read(p []byte, timeout time.Duration) (int, error) {
	if err := c.stream.SetReadDeadline(deadline(timeout)); err != nil {
		return 0, c.transportError("read", 0, len(p), fmt.Errorf("setting deadline: %w", err))
	}
	n, err := io.ReadFull(c.stream, p)
	if err != nil {
		return n, c.transportError("read", n, len(p), err)
	}
	return n, nil
}

// Close closes the underlying stream. Subsequent calls return the
// first result.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.stream.Close()
	})
	return c.closeErr
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout) //nolint:realclock OS deadline
}

func (c *Channel) transportError(op string, transferred, expected int, err error) *TransportError {
	kind := classify(err)
	if transferred > 0 && transferred < expected {
		kind = Partial
	}
	return &TransportError{
		Kind:        kind,
		Channel:     c.name,
		Op:          op,
		Transferred: transferred,
		Expected:    expected,
		Err:         err,
	}
}

// Duplex pairs the two unidirectional channels of one side of a bridge.
type Duplex struct {
	Send    *Channel
	Receive *Channel
}

// Close closes both channels. It is safe to call more than once.
func (d *Duplex) Close() error {
	var errs []error
	if d.Send != nil {
		if err := d.Send.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.Receive != nil {
		if err := d.Receive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
