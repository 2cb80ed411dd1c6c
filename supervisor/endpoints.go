// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/effectbridge/channel"
)

// ChannelNamePrefix starts every channel base name.
const ChannelNamePrefix = "EffectBridge"

// Suffixes distinguishing the two directions.
const (
	ToSuffix   = "_to"
	FromSuffix = "_from"
)

// ChannelName returns a base name unique to this host process and this
// moment: "EffectBridge_<unix millis>_<uuid>".
func ChannelName(now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", ChannelNamePrefix, now.UnixMilli(), uuid.NewString())
}

// Endpoints is the host side of one channel pair.
type Endpoints interface {
	// Paths returns the arguments handed to the worker: the
	// host-to-worker channel first, then worker-to-host.
	Paths() (toPath, fromPath string)

	// TryConnect attempts to open both host ends without blocking. It
	// returns an error wrapping [channel.ErrPeerNotReady] while the
	// worker has not yet opened its side.
	TryConnect() (*channel.Duplex, error)

	// Release closes anything opened and removes the channels. It is
	// safe to call more than once.
	Release() error
}

// FIFOEndpoints is an [Endpoints] backed by two named pipes in a private
// temporary directory.
type FIFOEndpoints struct {
	directory string
	toPath    string
	fromPath  string

	mu       sync.Mutex
	receive  *os.File
	duplex   *channel.Duplex
	released bool
}

// NewFIFOEndpoints creates a mode 0700 directory under parent (the
// system temporary directory when empty) holding the two pipes named
// after [ChannelName].
func NewFIFOEndpoints(parent string, now time.Time) (*FIFOEndpoints, error) {
	directory, err := os.MkdirTemp(parent, "effectbridge-*")
	if err != nil {
		return nil, fmt.Errorf("creating channel directory: %w", err)
	}
	base := ChannelName(now)
	endpoints := &FIFOEndpoints{
		directory: directory,
		toPath:    filepath.Join(directory, base+ToSuffix),
		fromPath:  filepath.Join(directory, base+FromSuffix),
	}
	for _, path := range []string{endpoints.toPath, endpoints.fromPath} {
		if err := channel.CreateFIFO(path); err != nil {
			os.RemoveAll(directory)
			return nil, err
		}
	}
	return endpoints, nil
}

// Directory returns the private directory holding the pipes.
func (e *FIFOEndpoints) Directory() string { return e.directory }

// Paths implements [Endpoints].
func (e *FIFOEndpoints) Paths() (string, string) { return e.toPath, e.fromPath }

// TryConnect implements [Endpoints]. The worker-to-host reader is opened
// on the first attempt and kept; only the host-to-worker writer is
// retried.
func (e *FIFOEndpoints) TryConnect() (*channel.Duplex, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return nil, errors.New("supervisor: endpoints already released")
	}
	if e.duplex != nil {
		return e.duplex, nil
	}
	if e.receive == nil {
		receive, err := channel.OpenConsumer(e.fromPath)
		if err != nil {
			return nil, err
		}
		e.receive = receive
	}
	send, err := channel.OpenProducer(e.toPath)
	if err != nil {
		return nil, err
	}
	e.duplex = &channel.Duplex{
		Send:    channel.New(filepath.Base(e.toPath), send),
		Receive: channel.New(filepath.Base(e.fromPath), e.receive),
	}
	return e.duplex, nil
}

// Release implements [Endpoints].
func (e *FIFOEndpoints) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.released {
		return nil
	}
	e.released = true

	var errs []error
	if e.duplex != nil {
		if err := e.duplex.Close(); err != nil {
			errs = append(errs, err)
		}
	} else if e.receive != nil {
		if err := e.receive.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(e.directory); err != nil {
		errs = append(errs, fmt.Errorf("removing channel directory: %w", err))
	}
	return errors.Join(errs...)
}
