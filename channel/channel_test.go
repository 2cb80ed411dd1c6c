// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"bytes"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/bureau-foundation/effectbridge/lib/testutil"
)

func pipePair(t *testing.T) (*Channel, *Channel) {
	t.Helper()
	left, right := net.Pipe()
	sender := New("to", left)
	receiver := New("from", right)
	t.Cleanup(func() {
		sender.Close()
		receiver.Close()
	})
	return sender, receiver
}

func TestReadWriteExact(t *testing.T) {
	t.Parallel()
	sender, receiver := pipePair(t)

	message := bytes.Repeat([]byte{0xAB}, 4108)
	writeDone := make(chan error, 1)
	go func() {
		_, err := sender.Write(message, time.Second)
		writeDone <- err
	}()

	buffer := make([]byte, len(message))
	n, err := receiver.Read(buffer, 5*time.Second)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != len(message) || !bytes.Equal(buffer, message) {
		t.Fatalf("Read returned %d bytes, want %d identical", n, len(message))
	}
	if err := testutil.RequireReceive(t, writeDone, 5*time.Second, "write completion"); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestReadTimesOut(t *testing.T) {
	t.Parallel()
	_, receiver := pipePair(t)

	buffer := make([]byte, 12)
	n, err := receiver.Read(buffer, 20*time.Millisecond)
	if n != 0 {
		t.Errorf("Read transferred %d bytes, want 0", n)
	}
	kind, ok := KindOf(err)
	if !ok || kind != TimedOut {
		t.Fatalf("Read error = %v, want TimedOut", err)
	}
}

func TestReadPartial(t *testing.T) {
	t.Parallel()
	sender, receiver := pipePair(t)

	go sender.Write([]byte{1, 2, 3, 4}, time.Second)

	buffer := make([]byte, 8)
	n, err := receiver.Read(buffer, 100*time.Millisecond)
	if n != 4 {
		t.Errorf("Read transferred %d bytes, want 4", n)
	}
	var transportError *TransportError
	if !errors.As(err, &transportError) {
		t.Fatalf("Read error = %v, want *TransportError", err)
	}
	if transportError.Kind != Partial || transportError.Transferred != 4 || transportError.Expected != 8 {
		t.Errorf("TransportError = %+v, want Partial 4/8", transportError)
	}
}

func TestReadClosedPeer(t *testing.T) {
	t.Parallel()
	sender, receiver := pipePair(t)

	sender.Close()
	_, err := receiver.Read(make([]byte, 4), time.Second)
	kind, ok := KindOf(err)
	if !ok || kind != Closed {
		t.Fatalf("Read error = %v, want Closed", err)
	}
	if !IsClosedError(err) {
		t.Errorf("IsClosedError(%v) = false", err)
	}
}

func TestWriteTimesOut(t *testing.T) {
	t.Parallel()
	sender, _ := pipePair(t)

	// net.Pipe is unbuffered; with no reader the write cannot progress.
	_, err := sender.Write([]byte{1}, 20*time.Millisecond)
	kind, ok := KindOf(err)
	if !ok || kind != TimedOut {
		t.Fatalf("Write error = %v, want TimedOut", err)
	}
}

func TestZeroTimeoutBlocks(t *testing.T) {
	t.Parallel()
	sender, receiver := pipePair(t)

	readDone := make(chan error, 1)
	go func() {
		_, err := receiver.Read(make([]byte, 4), 0)
		readDone <- err
	}()

	select {
	case err := <-readDone:
		t.Fatalf("Read without timeout returned early: %v", err)
	case <-time.After(50 * time.Millisecond): //nolint:realclock verifying absence of a deadline
	}

	if _, err := sender.Write([]byte{9, 9, 9, 9}, time.Second); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := testutil.RequireReceive(t, readDone, 5*time.Second, "blocking read"); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestDuplexCloseIdempotent(t *testing.T) {
	t.Parallel()
	left, right := net.Pipe()
	duplex := &Duplex{Send: New("to", left), Receive: New("from", right)}

	if err := duplex.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := duplex.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	_, err := duplex.Send.Write([]byte{1}, time.Second)
	if kind, _ := KindOf(err); kind != Closed {
		t.Errorf("Write after Close = %v, want Closed", err)
	}
}

func TestIsClosedError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{io.EOF, true},
		{net.ErrClosed, true},
		{io.ErrClosedPipe, true},
		{errors.New("disk on fire"), false},
	}
	for _, test := range tests {
		if got := IsClosedError(test.err); got != test.want {
			t.Errorf("IsClosedError(%v) = %v, want %v", test.err, got, test.want)
		}
	}
}
