// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/effectbridge/channel"
	"github.com/bureau-foundation/effectbridge/lib/testutil"
	"github.com/bureau-foundation/effectbridge/wire"
)

func TestServeRequiresPaths(t *testing.T) {
	t.Parallel()
	if err := Serve(context.Background(), "", "/tmp/x", Options{}); !errors.Is(err, ErrUsage) {
		t.Fatalf("Serve with empty path = %v, want ErrUsage", err)
	}
}

func TestServeOverNamedPipes(t *testing.T) {
	t.Parallel()
	directory := testutil.FIFODir(t)
	toPath := filepath.Join(directory, "bridge_to")
	fromPath := filepath.Join(directory, "bridge_from")
	for _, path := range []string{toPath, fromPath} {
		if err := channel.CreateFIFO(path); err != nil {
			t.Fatalf("CreateFIFO: %v", err)
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- Serve(context.Background(), toPath, fromPath, Options{})
	}()

	receiveFile, err := channel.OpenConsumer(fromPath)
	if err != nil {
		t.Fatalf("OpenConsumer: %v", err)
	}
	deadline := time.Now().Add(testTimeout)
	var sendFile *os.File
	for {
		file, err := channel.OpenProducer(toPath)
		if err == nil {
			sendFile = file
			break
		}
		if !errors.Is(err, channel.ErrPeerNotReady) {
			t.Fatalf("OpenProducer: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("worker never opened its read end")
		}
		time.Sleep(10 * time.Millisecond) //nolint:realclock // polling a real FIFO open
	}

	h := &host{
		send:    channel.New("to", sendFile),
		receive: channel.New("from", receiveFile),
	}
	defer h.send.Close()
	defer h.receive.Close()

	h.mustSucceed(t, 1, wire.LoadPluginPayload{Path: "builtin:passthrough"})
	h.mustSucceed(t, 2, wire.ShutdownPayload{})

	if err := testutil.RequireReceive(t, done, testTimeout, "waiting for Serve"); err != nil {
		t.Fatalf("Serve: %v", err)
	}
}
