// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/effectbridge/channel"
	"github.com/bureau-foundation/effectbridge/lib/clock"
)

// HandshakeState is the position of a [Handshake].
type HandshakeState int

const (
	Idle HandshakeState = iota
	SpawnRequested
	Listening
	Connected
	Failed
)

func (s HandshakeState) String() string {
	switch s {
	case Idle:
		return "idle"
	case SpawnRequested:
		return "spawn_requested"
	case Listening:
		return "listening"
	case Connected:
		return "connected"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handshake spawns the worker and waits for it to open its channel
// ends. A Handshake runs once.
type Handshake struct {
	Clock        clock.Clock
	Launcher     Launcher
	WorkerPath   string
	Endpoints    Endpoints
	PollInterval time.Duration
	Timeout      time.Duration
	Logger       *slog.Logger

	// OnTransition, when set, is called for every state change.
	OnTransition func(from, to HandshakeState)

	state HandshakeState
}

// State returns the current state.
func (h *Handshake) State() HandshakeState {
	return h.state
}

func (h *Handshake) transition(to HandshakeState) {
	from := h.state
	h.state = to
	if h.OnTransition != nil {
		h.OnTransition(from, to)
	}
}

// attempts is how many open attempts fit in the timeout, at least one.
func (h *Handshake) attempts() int {
	if h.PollInterval <= 0 {
		return 1
	}
	count := int(h.Timeout / h.PollInterval)
	if h.Timeout%h.PollInterval != 0 {
		count++
	}
	return max(count, 1)
}

// Run spawns the worker and polls until both channel ends are open. On
// success it returns the process and the connected channels in state
// Connected. On failure the state is Failed and the returned process, if
// non-nil, is still running; the caller tears it down.
func (h *Handshake) Run(ctx context.Context) (Process, *channel.Duplex, error) {
	if h.state != Idle {
		return nil, nil, fmt.Errorf("handshake already ran (state %s)", h.state)
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	toPath, fromPath := h.Endpoints.Paths()
	h.transition(SpawnRequested)
	process, err := h.Launcher.Launch(ctx, h.WorkerPath, []string{toPath, fromPath})
	if err != nil {
		h.transition(Failed)
		return nil, nil, err
	}
	logger.Info("worker spawned",
		"pid", process.PID(),
		"worker_path", h.WorkerPath,
		"to_path", toPath,
		"from_path", fromPath,
	)

	h.transition(Listening)
	attempts := h.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		duplex, err := h.Endpoints.TryConnect()
		if err == nil {
			h.transition(Connected)
			logger.Info("worker connected", "pid", process.PID(), "attempts", attempt)
			return process, duplex, nil
		}
		if !errors.Is(err, channel.ErrPeerNotReady) {
			h.transition(Failed)
			return process, nil, fmt.Errorf("opening channel ends: %w", err)
		}
		logger.Debug("worker not ready", "attempt", attempt)

		select {
		case <-h.Clock.After(h.PollInterval):
		case <-process.Done():
			h.transition(Failed)
			return process, nil, fmt.Errorf("%w (exit code %d)", ErrWorkerExited, process.ExitCode())
		case <-ctx.Done():
			h.transition(Failed)
			return process, nil, ctx.Err()
		}
	}

	h.transition(Failed)
	return process, nil, fmt.Errorf("%w after %v", ErrConnectTimeout, h.Timeout)
}
