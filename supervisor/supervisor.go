// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/effectbridge/channel"
	"github.com/bureau-foundation/effectbridge/lib/clock"
	"github.com/bureau-foundation/effectbridge/lib/config"
)

// Options configures a Supervisor. Zero durations take the defaults
// from lib/config.
type Options struct {
	// WorkerPath is an explicit worker executable. When empty the
	// worker named WorkerExecutable is looked up next to the host.
	WorkerPath       string
	WorkerExecutable string

	ConnectTimeout time.Duration
	PollInterval   time.Duration
	ShutdownGrace  time.Duration

	// Launcher starts the worker. Default: an ExecLauncher with no
	// extra environment.
	Launcher Launcher

	// NewEndpoints creates the channel pair for one connection.
	// Default: FIFOs under the system temporary directory.
	NewEndpoints func(now time.Time) (Endpoints, error)

	Clock  clock.Clock
	Logger *slog.Logger
}

// Supervisor runs one worker at a time. It is safe for concurrent use,
// but the bridge session serializes every call anyway.
type Supervisor struct {
	options Options
	logger  *slog.Logger

	mu        sync.Mutex
	process   Process
	endpoints Endpoints
	duplex    *channel.Duplex
}

// New returns a Supervisor with defaults filled in.
func New(options Options) *Supervisor {
	defaults := config.Default().Timeouts
	if options.ConnectTimeout <= 0 {
		options.ConnectTimeout = defaults.Connect
	}
	if options.PollInterval <= 0 {
		options.PollInterval = defaults.PollInterval
	}
	if options.ShutdownGrace <= 0 {
		options.ShutdownGrace = defaults.ShutdownGrace
	}
	if options.WorkerExecutable == "" {
		options.WorkerExecutable = config.DefaultWorkerExecutable
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	logger := options.Logger.With("component", "supervisor")
	if options.Launcher == nil {
		options.Launcher = &ExecLauncher{Logger: logger}
	}
	if options.NewEndpoints == nil {
		options.NewEndpoints = func(now time.Time) (Endpoints, error) {
			return NewFIFOEndpoints("", now)
		}
	}
	return &Supervisor{options: options, logger: logger}
}

// Connect starts a worker and returns its connected channels. A worker
// from an earlier Connect must have been torn down first.
func (s *Supervisor) Connect(ctx context.Context) (*channel.Duplex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.process != nil || s.endpoints != nil {
		return nil, errors.New("supervisor: already connected; tear down first")
	}

	workerPath, err := LocateWorker(s.options.WorkerPath, s.options.WorkerExecutable)
	if err != nil {
		return nil, err
	}

	endpoints, err := s.options.NewEndpoints(s.options.Clock.Now())
	if err != nil {
		return nil, fmt.Errorf("creating channels: %w", err)
	}

	handshake := &Handshake{
		Clock:        s.options.Clock,
		Launcher:     s.options.Launcher,
		WorkerPath:   workerPath,
		Endpoints:    endpoints,
		PollInterval: s.options.PollInterval,
		Timeout:      s.options.ConnectTimeout,
		Logger:       s.logger,
	}
	process, duplex, err := handshake.Run(ctx)
	s.process = process
	s.endpoints = endpoints
	if err != nil {
		// The worker never finished connecting; there is nothing to
		// notify and no reason to wait.
		s.killLocked()
		s.releaseLocked()
		return nil, err
	}
	s.duplex = duplex
	return duplex, nil
}

// Alive reports whether a worker is running.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return alive(s.process)
}

// PID returns the worker's process ID, or 0 when none is running.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !alive(s.process) {
		return 0
	}
	return s.process.PID()
}

// Teardown stops the worker and releases the channels. When the worker
// is alive, notify is called first (best effort) with the connected
// channels, then Teardown waits the shutdown grace period and kills the
// worker if it has not exited.
func (s *Supervisor) Teardown(notify func(*channel.Duplex)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardownLocked(notify)
}

func (s *Supervisor) teardownLocked(notify func(*channel.Duplex)) {
	process := s.process
	if alive(process) {
		if notify != nil && s.duplex != nil {
			notify(s.duplex)
		}
		select {
		case <-process.Done():
		case <-s.options.Clock.After(s.options.ShutdownGrace):
		}
		if alive(process) {
			s.logger.Warn("worker still running after grace period, killing",
				"pid", process.PID(),
				"grace", s.options.ShutdownGrace,
			)
			s.killLocked()
		}
	}
	s.releaseLocked()
}

func (s *Supervisor) killLocked() {
	process := s.process
	if !alive(process) {
		return
	}
	if err := process.Kill(); err != nil {
		s.logger.Error("killing worker", "pid", process.PID(), "error", err)
	}
	<-process.Done()
}

func (s *Supervisor) releaseLocked() {
	if s.endpoints != nil {
		if err := s.endpoints.Release(); err != nil {
			s.logger.Warn("releasing channels", "error", err)
		}
	}
	s.process = nil
	s.endpoints = nil
	s.duplex = nil
}
