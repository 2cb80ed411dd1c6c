// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Process is a running worker.
type Process interface {
	// PID returns the operating system process ID.
	PID() int

	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}

	// ExitCode returns the exit code, or -1 when the process was
	// killed by a signal. Only valid after Done is closed.
	ExitCode() int

	// Kill terminates the process immediately.
	Kill() error
}

// Launcher starts worker processes.
type Launcher interface {
	Launch(ctx context.Context, path string, args []string) (Process, error)
}

// alive reports whether process has not yet been reaped.
func alive(process Process) bool {
	if process == nil {
		return false
	}
	select {
	case <-process.Done():
		return false
	default:
		return true
	}
}

// ExecLauncher starts workers with os/exec. The worker inherits the host
// environment plus Env, and writes its logs to Stderr (os.Stderr when
// nil).
type ExecLauncher struct {
	Env    []string
	Stderr io.Writer
	Logger *slog.Logger
}

type execProcess struct {
	command  *exec.Cmd
	done     chan struct{}
	exitCode int
}

func (p *execProcess) PID() int              { return p.command.Process.Pid }
func (p *execProcess) Done() <-chan struct{} { return p.done }
func (p *execProcess) ExitCode() int         { return p.exitCode }

func (p *execProcess) Kill() error {
	err := p.command.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

// Launch implements [Launcher].
func (l *ExecLauncher) Launch(ctx context.Context, path string, args []string) (Process, error) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}

	command := exec.Command(path, args...)
	command.Env = append(os.Environ(), l.Env...)
	command.Stderr = l.Stderr
	if command.Stderr == nil {
		command.Stderr = os.Stderr
	}

	if err := command.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %s: %w", path, err)
	}

	process := &execProcess{command: command, done: make(chan struct{})}

	// Reap in the background so an exited worker never lingers as a
	// zombie; Done lets the handshake fail fast on early exit.
	go func() {
		waitError := command.Wait()
		exitCode := 0
		if waitError != nil {
			var exitErr *exec.ExitError
			if errors.As(waitError, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		process.exitCode = exitCode
		close(process.done)
		logger.Info("worker process exited",
			"pid", command.Process.Pid,
			"exit_code", exitCode,
			"error", waitError,
		)
	}()

	return process, nil
}
