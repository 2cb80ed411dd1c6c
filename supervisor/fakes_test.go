// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/effectbridge/channel"
)

type fakeProcess struct {
	pid      int
	done     chan struct{}
	once     sync.Once
	exitCode atomic.Int32
	killed   atomic.Bool
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, done: make(chan struct{})}
}

func (p *fakeProcess) PID() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) ExitCode() int         { return int(p.exitCode.Load()) }

func (p *fakeProcess) exit(code int) {
	p.once.Do(func() {
		p.exitCode.Store(int32(code))
		close(p.done)
	})
}

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.exit(-1)
	return nil
}

type fakeLauncher struct {
	process *fakeProcess
	path    string
	args    []string
	err     error
}

func (l *fakeLauncher) Launch(ctx context.Context, path string, args []string) (Process, error) {
	l.path = path
	l.args = args
	if l.err != nil {
		return nil, l.err
	}
	return l.process, nil
}

// fakeEndpoints reports the peer as not ready until readyAfter attempts
// have been made, then connects over in-memory pipes.
type fakeEndpoints struct {
	readyAfter int

	mu       sync.Mutex
	attempts int
	releases int
	duplex   *channel.Duplex
	worker   *channel.Duplex
	failWith error
}

func (e *fakeEndpoints) Paths() (string, string) {
	return "/fake/EffectBridge_to", "/fake/EffectBridge_from"
}

func (e *fakeEndpoints) TryConnect() (*channel.Duplex, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.attempts++
	if e.failWith != nil {
		return nil, e.failWith
	}
	if e.attempts < e.readyAfter {
		return nil, channel.ErrPeerNotReady
	}
	hostSend, workerReceive := net.Pipe()
	workerSend, hostReceive := net.Pipe()
	e.duplex = &channel.Duplex{
		Send:    channel.New("to", hostSend),
		Receive: channel.New("from", hostReceive),
	}
	e.worker = &channel.Duplex{
		Send:    channel.New("from", workerSend),
		Receive: channel.New("to", workerReceive),
	}
	return e.duplex, nil
}

func (e *fakeEndpoints) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.releases++
	if e.duplex != nil {
		e.duplex.Close()
		e.worker.Close()
	}
	return nil
}

func (e *fakeEndpoints) counts() (attempts, releases int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attempts, e.releases
}
