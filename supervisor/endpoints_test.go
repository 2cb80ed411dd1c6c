// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/effectbridge/channel"
	"github.com/bureau-foundation/effectbridge/lib/testutil"
)

func TestChannelName(t *testing.T) {
	t.Parallel()
	now := time.UnixMilli(1700000000123)
	pattern := regexp.MustCompile(`^EffectBridge_1700000000123_[0-9a-f-]{36}$`)

	first := ChannelName(now)
	second := ChannelName(now)
	if !pattern.MatchString(first) {
		t.Errorf("ChannelName = %q, does not match %s", first, pattern)
	}
	if first == second {
		t.Errorf("two names at the same instant collided: %q", first)
	}
}

func TestFIFOEndpoints(t *testing.T) {
	t.Parallel()
	parent := testutil.FIFODir(t)

	endpoints, err := NewFIFOEndpoints(parent, time.Now())
	if err != nil {
		t.Fatalf("NewFIFOEndpoints: %v", err)
	}
	toPath, fromPath := endpoints.Paths()
	if !strings.HasSuffix(toPath, ToSuffix) || !strings.HasSuffix(fromPath, FromSuffix) {
		t.Errorf("paths = %q, %q", toPath, fromPath)
	}
	if strings.TrimSuffix(toPath, ToSuffix) != strings.TrimSuffix(fromPath, FromSuffix) {
		t.Errorf("paths do not share a base name: %q, %q", toPath, fromPath)
	}
	for _, path := range []string{toPath, fromPath} {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat %s: %v", path, err)
		}
		if info.Mode()&os.ModeNamedPipe == 0 {
			t.Errorf("%s is not a named pipe", path)
		}
		if filepath.Dir(path) != endpoints.Directory() {
			t.Errorf("%s is outside %s", path, endpoints.Directory())
		}
	}

	// Nobody has the worker ends open.
	if _, err := endpoints.TryConnect(); !errors.Is(err, channel.ErrPeerNotReady) {
		t.Fatalf("TryConnect = %v, want ErrPeerNotReady", err)
	}

	if err := endpoints.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(endpoints.Directory()); !os.IsNotExist(err) {
		t.Errorf("channel directory survives Release: %v", err)
	}
	if err := endpoints.Release(); err != nil {
		t.Errorf("second Release: %v", err)
	}
	if _, err := endpoints.TryConnect(); err == nil {
		t.Error("TryConnect after Release succeeded")
	}
}

func TestFIFOEndpointsConnect(t *testing.T) {
	t.Parallel()
	endpoints, err := NewFIFOEndpoints(testutil.FIFODir(t), time.Now())
	if err != nil {
		t.Fatalf("NewFIFOEndpoints: %v", err)
	}
	defer endpoints.Release()
	toPath, fromPath := endpoints.Paths()

	type workerEnds struct {
		writer, reader *os.File
		err            error
	}
	opened := make(chan workerEnds, 1)
	go func() {
		writer, err := channel.OpenWriter(fromPath)
		if err != nil {
			opened <- workerEnds{err: err}
			return
		}
		reader, err := channel.OpenReader(toPath)
		opened <- workerEnds{writer: writer, reader: reader, err: err}
	}()

	var duplex *channel.Duplex
	deadline := time.Now().Add(5 * time.Second)
	for {
		duplex, err = endpoints.TryConnect()
		if err == nil {
			break
		}
		if !errors.Is(err, channel.ErrPeerNotReady) {
			t.Fatalf("TryConnect: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("worker ends never opened")
		}
		time.Sleep(10 * time.Millisecond) //nolint:realclock // polling a real FIFO open
	}

	ends := testutil.RequireReceive(t, opened, 5*time.Second, "waiting for worker ends")
	if ends.err != nil {
		t.Fatalf("opening worker ends: %v", ends.err)
	}
	defer ends.writer.Close()
	defer ends.reader.Close()

	if _, err := duplex.Send.Write([]byte("ping"), time.Second); err != nil {
		t.Fatalf("Send.Write: %v", err)
	}
	buffer := make([]byte, 4)
	if _, err := ends.reader.Read(buffer); err != nil || string(buffer) != "ping" {
		t.Fatalf("worker read %q, %v", buffer, err)
	}
	if _, err := ends.writer.Write([]byte("pong")); err != nil {
		t.Fatalf("worker write: %v", err)
	}
	if _, err := duplex.Receive.Read(buffer, time.Second); err != nil || string(buffer) != "pong" {
		t.Fatalf("host read %q, %v", buffer, err)
	}
	if duplex.Send.Name() != filepath.Base(toPath) {
		t.Errorf("send channel name = %q, want %q", duplex.Send.Name(), filepath.Base(toPath))
	}
}
